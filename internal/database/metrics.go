package database

import (
	"database/sql"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	upsertMetricSQL = `
	INSERT INTO metrics (metric_name, label_key, label_value, metric_value)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (metric_name, label_key, label_value)
	DO UPDATE SET metric_value = excluded.metric_value;`

	selectPlainMetricSQL = `
	SELECT metric_value FROM metrics
	WHERE metric_name = ? AND label_key = '' AND label_value = '';`

	selectLabeledMetricsSQL = `
	SELECT label_key, label_value, metric_value FROM metrics
	WHERE metric_name = ? AND label_key != '';`
)

// SaveMetric stores one counter value. Unlabelled series use empty label
// key and value.
func (d *DB) SaveMetric(name, labelKey, labelValue string, value float64) error {
	if _, err := d.conn.Exec(upsertMetricSQL, name, labelKey, labelValue, value); err != nil {
		return errors.Wrapf(err, "failed to save metric %s", name)
	}
	log.Debugf("Metric saved: %s[%s=%s] = %f", name, labelKey, labelValue, value)
	return nil
}

// GetMetric returns the unlabelled value of name, or 0 when it was never
// saved.
func (d *DB) GetMetric(name string) (float64, error) {
	var value float64
	err := d.conn.QueryRow(selectPlainMetricSQL, name).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, errors.Wrapf(err, "failed to get metric %s", name)
	}
	return value, nil
}

// GetMetricsWithLabels returns the labelled values of name keyed by label
// key, then label value.
func (d *DB) GetMetricsWithLabels(name string) (map[string]map[string]float64, error) {
	rows, err := d.conn.Query(selectLabeledMetricsSQL, name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query labelled metric %s", name)
	}
	defer rows.Close()

	out := make(map[string]map[string]float64)
	for rows.Next() {
		var key, value string
		var v float64
		if err := rows.Scan(&key, &value, &v); err != nil {
			return nil, errors.Wrap(err, "failed to scan metric row")
		}
		if out[key] == nil {
			out[key] = make(map[string]float64)
		}
		out[key][value] = v
	}
	return out, rows.Err()
}
