package moderation

// DefaultBlockedWords is matched as plain lower-case substrings, including
// inside longer words.
var DefaultBlockedWords = []string{
	"idiota", "imbécil", "puta", "puto", "gilipollas", "maldito", "cabrón", "cabrona",
	"pendejo", "pendeja", "coño", "joder", "carajo", "culero", "pelotudo", "verga",
	"polla", "pollas", "chingar", "chingada", "maricón", "zorra", "subnormal",
	"chupapito", "chupapitos", "mamahuevos", "mamaguevo", "mamaguevos",
	"chupa pitos", "chupa pito", "mama huevos", "mama huevo", "rozame el ano",
	"cabron", "imbecil", "gilí", "pringado", "capullo", "soplapollas", "tontolaba",
	"meapilas", "mindundi", "caraculo", "comemierda", "toca huevos", "pinche",
	"naco", "güey", "pendejazo", "mamón", "cagón", "traga mierda", "chupamedias",
	"boludo", "mogólico", "forro", "conchudo", "bobo", "chupaculo", "cabeza de termo",
	"weón", "culiao", "saco wea", "conchesumadre", "maraco", "picao a la araña",
	"longi", "huevón", "gonorrea", "carechimba", "careverga", "marrano", "malparido",
	"zarrapastroso", "mamagüevo", "pajuo", "mardito", "mariquito", "carapicha",
	"jalabolas", "perolito", "chúpame", "chupame", "cojudo", "pavo",
	"chibolo de mierda", "conchatumare", "pariguayo", "bocón", "chopo", "lambón",
	"bellaco", "mamabicho", "pendejete", "cafre", "singao", "fajao", "descarao",
	"chivatón", "caremondá", "careculo", "carapinga", "caraverga", "verguero",
	"mierdero", "tarado", "imbécilazo", "estúpido de mierda", "merluzo",
}

// DefaultSpamPatterns are searched unanchored against the lower-cased text.
var DefaultSpamPatterns = []string{
	`http[s]?://[^ ]*(\.cn|\.ru|binancegift|airdrops?|bonus|freecrypto)`,
	`gana\s+dinero\s+r[aá]pido`,
	`hazte\s+rico`,
	`multiplica\s+tu\s+inversi[oó]n`,
	`env[ií]a\s+(usdt|btc|eth)\s+a\s+esta\s+direcci[oó]n`,
	`airdrop`,
	`criptopumpva`, `@criptopumpva`,
	`@criptosenals`, `criptosenals`,
	`miren\s+este\s+canal`,
	`anyone\s+sell\s+pi`,
	`retira\s+tu\s+bono`,
	`@criptoppumps`, `criptoppumps`,
	`trumpdropwalletbot`,
}
