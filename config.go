package opinionmap

// Config holds all environment variables
var Config struct {
	OpenAIAPIKey string
	ListenAddr   string
	CORSOrigin   string
	CachePath    string
}
