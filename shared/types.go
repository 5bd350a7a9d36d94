package shared

const (
	SQLITE_DRIVER   = "sqlite"
	POSTGRES_DRIVER = "postgres"

	LOCAL_FEED    = "local"
	POSTGRES_FEED = "postgres"
)

type ServerConfig struct {
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	LifeAlert LifeAlertConfig `mapstructure:"lifealert" validate:"required"`
	Twilio    TwilioConfig    `mapstructure:"twilio"`
	Smtp      SmtpConfig      `mapstructure:"smtp"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Google    GoogleConfig    `mapstructure:"google"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
	Dsn    string `mapstructure:"dsn" validate:"required"`
}

type LifeAlertConfig struct {
	PrivateKeyPem string         `mapstructure:"privateKeyPem" validate:"required"`
	Listener      ListenerConfig `mapstructure:"listener" validate:"required"`
	Cron          CronConfig     `mapstructure:"cron"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid"`
	AuthToken           string `mapstructure:"authToken"`
	From                string `mapstructure:"from" validate:"required_without=MessagingServiceSid"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid"`
}

type SmtpConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from" validate:"omitempty,email"`
	NoVerify bool   `mapstructure:"noVerify"`
}

type AlertingConfig struct {
	MapsBaseURL string `mapstructure:"mapsBaseURL" validate:"omitempty,url"`
}

type FeedConfig struct {
	Source string `mapstructure:"source" validate:"omitempty,oneof=local postgres"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Bucket               string `mapstructure:"bucket" validate:"required_with=EnableSqliteBackup"`
	Prefix               string `mapstructure:"prefix"`
	SqliteBackupSchedule string `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackup"`
	EnableSqliteBackup   bool   `mapstructure:"enableSqliteBackup"`
}
