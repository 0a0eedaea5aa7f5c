package metrics

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

const (
	namespace = "canaro"
	subsystem = "telegram_bot"
)

// Store persists counter snapshots between restarts.
type Store interface {
	SaveMetric(metricName, labelKey, labelValue string, value float64) error
	GetMetric(metricName string) (float64, error)
	GetMetricsWithLabels(metricName string) (map[string]map[string]float64, error)
}

type BotMetrics struct {
	CommandsProcessed   prometheus.Counter
	MessagesHandled     prometheus.Counter
	ChannelsCount       prometheus.Gauge
	ChannelNames        *prometheus.CounterVec
	MessagesPerChannel  *prometheus.CounterVec
	ModerationDeletions *prometheus.CounterVec
	MediaRejected       prometheus.Counter

	mu          sync.Mutex
	channelsSet map[int64]string
}

func New(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commands_processed",
			Help:      "The total number of processed commands",
		}),
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_handled",
			Help:      "The total number of handled messages",
		}),
		ChannelsCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "channels_count",
			Help:      "The current number of unique chats the bot is operating in",
		}),
		ChannelNames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "channel_names",
				Help:      "Tracks chats the bot has interacted with",
			},
			[]string{"chat_id", "chat_name"},
		),
		MessagesPerChannel: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "messages_per_channel",
				Help:      "The total number of messages handled per chat",
			},
			[]string{"chat_id", "chat_name"},
		),
		ModerationDeletions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "moderation_deletions",
				Help:      "Messages deleted by the content filter, by verdict",
			},
			[]string{"reason"},
		),
		MediaRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "media_rejected",
			Help:      "Media messages removed for exceeding the daily quota",
		}),
		channelsSet: make(map[int64]string),
	}

	reg.MustRegister(
		m.CommandsProcessed,
		m.MessagesHandled,
		m.ChannelsCount,
		m.ChannelNames,
		m.MessagesPerChannel,
		m.ModerationDeletions,
		m.MediaRejected,
	)

	return m
}

// ObserveMessage counts one inbound message and registers its chat the first
// time it is seen.
func (m *BotMetrics) ObserveMessage(chatID int64, chatName string) {
	if chatName == "" {
		chatName = fmt.Sprintf("%s-%d", "PrivateChat", chatID)
	}

	m.MessagesHandled.Inc()
	m.MessagesPerChannel.WithLabelValues(strconv.FormatInt(chatID, 10), chatName).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.channelsSet[chatID]; !exists {
		m.channelsSet[chatID] = chatName
		m.ChannelsCount.Set(float64(len(m.channelsSet)))
		m.ChannelNames.WithLabelValues(strconv.FormatInt(chatID, 10), chatName).Inc()
	}
}

func (m *BotMetrics) ObserveDeletion(reason string) {
	m.ModerationDeletions.WithLabelValues(reason).Inc()
}

// Load seeds the counters with the last saved snapshot.
func (m *BotMetrics) Load(store Store) {
	m.mu.Lock()
	defer m.mu.Unlock()

	commandsProcessed, _ := store.GetMetric("commands_processed")
	messagesHandled, _ := store.GetMetric("messages_handled")
	mediaRejected, _ := store.GetMetric("media_rejected")

	m.CommandsProcessed.Add(commandsProcessed)
	m.MessagesHandled.Add(messagesHandled)
	m.MediaRejected.Add(mediaRejected)

	loadLabeledMetrics(store, "channel_names", func(chatIDStr, chatName string, _ float64) {
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			log.Warnf("Failed to parse chatID %s: %v", chatIDStr, err)
			return
		}
		m.ChannelNames.WithLabelValues(chatIDStr, chatName).Add(1)
		m.channelsSet[chatID] = chatName
	})
	m.ChannelsCount.Set(float64(len(m.channelsSet)))

	loadLabeledMetrics(store, "messages_per_channel", func(chatID, chatName string, value float64) {
		m.MessagesPerChannel.WithLabelValues(chatID, chatName).Add(value)
	})

	loadLabeledMetrics(store, "moderation_deletions", func(reason, _ string, value float64) {
		m.ModerationDeletions.WithLabelValues(reason).Add(value)
	})

	log.Info("Metrics loaded from database.")
}

func loadLabeledMetrics(store Store, metricName string, callback func(labelKey, labelValue string, value float64)) {
	metricsWithLabels, err := store.GetMetricsWithLabels(metricName)
	if err != nil {
		log.Warnf("Failed to load %s: %v", metricName, err)
		return
	}
	for labelKey, labelValues := range metricsWithLabels {
		for labelValue, value := range labelValues {
			callback(labelKey, labelValue, value)
		}
	}
}

// Save writes the current counter values. Labelled series are stored with
// their first label as key and the second (if any) as value.
func (m *BotMetrics) Save(store Store) {
	m.mu.Lock()
	defer m.mu.Unlock()

	save := func(name, key, value string, v float64) {
		if err := store.SaveMetric(name, key, value, v); err != nil {
			log.Errorf("Failed to save metric %s: %v", name, err)
		}
	}

	save("commands_processed", "", "", GetMetricValue(m.CommandsProcessed))
	save("messages_handled", "", "", GetMetricValue(m.MessagesHandled))
	save("media_rejected", "", "", GetMetricValue(m.MediaRejected))
	save("channels_count", "", "", float64(len(m.channelsSet)))

	for chatID, chatName := range m.channelsSet {
		save("channel_names", strconv.FormatInt(chatID, 10), chatName, float64(chatID))
	}

	collectLabeled(m.MessagesPerChannel, func(labels map[string]string, value float64) {
		save("messages_per_channel", labels["chat_id"], labels["chat_name"], value)
	})
	collectLabeled(m.ModerationDeletions, func(labels map[string]string, value float64) {
		save("moderation_deletions", labels["reason"], "", value)
	})

	log.Debug("Metrics saved to database.")
}

func collectLabeled(vec *prometheus.CounterVec, callback func(labels map[string]string, value float64)) {
	metricChan := make(chan prometheus.Metric, 1)
	go func() {
		vec.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Warnf("Failed to read labelled metric: %v", err)
			continue
		}
		labels := make(map[string]string, len(metricProto.Label))
		for _, label := range metricProto.Label {
			labels[label.GetName()] = label.GetValue()
		}
		callback(labels, metricProto.Counter.GetValue())
	}
}

// GetMetricValue reads the value of a single counter or gauge.
func GetMetricValue(metric prometheus.Collector) float64 {
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Warnf("Failed to read metric value: %v", err)
		return 0
	}

	switch {
	case metricProto.Counter != nil:
		return metricProto.Counter.GetValue()
	case metricProto.Gauge != nil:
		return metricProto.Gauge.GetValue()
	}
	return 0
}
