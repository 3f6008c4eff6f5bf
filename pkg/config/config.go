package config

// DB holds database connection settings.
type DB struct {
	Url string `envconfig:"URL"`
}

// Log holds logger settings.
type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[ledger]"`
}

// Ledger holds account-number generation settings.
type Ledger struct {
	AccountNumberPrefix string `envconfig:"ACCOUNT_NUMBER_PREFIX" default:"10"`
	MaxNumberRetries    int    `envconfig:"MAX_NUMBER_RETRIES" default:"5"`
}

// Audit holds audit trail settings. The deferred queue buffers LOW/MEDIUM
// entries when the store is briefly unavailable.
type Audit struct {
	DeferredQueueSize int `envconfig:"DEFERRED_QUEUE_SIZE" default:"256"`
}

// App is the root configuration tree, loaded from the environment.
type App struct {
	Env    string  `envconfig:"APP_ENV" default:"development"`
	DB     *DB     `envconfig:"DATABASE"`
	Log    *Log    `envconfig:"LOG"`
	Ledger *Ledger `envconfig:"LEDGER"`
	Audit  *Audit  `envconfig:"AUDIT"`
}
