package params

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type API struct {
	Addr           string
	AllowedOrigins []string
}

type Storage struct {
	// DBPath is where the Pebble database lives. Empty means ephemeral
	// (in-memory only, nothing survives a restart).
	DBPath string
}

type Config struct {
	API       API
	Storage   Storage
	LogFile   string
	UsersFile string
}

func Default() Config {
	return Config{
		API: API{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		Storage: Storage{
			DBPath: "data/board.db",
		},
		LogFile:   "data/boardd.log",
		UsersFile: "data/users.json",
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.API.Addr = addr
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = strings.Split(origins, ",")
	}
	if dbPath, ok := os.LookupEnv("DB_PATH"); ok {
		cfg.Storage.DBPath = dbPath // explicit empty disables persistence
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		cfg.LogFile = logFile
	}
	if usersFile := os.Getenv("USERS_FILE"); usersFile != "" {
		cfg.UsersFile = usersFile
	}

	return cfg
}
