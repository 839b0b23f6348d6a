package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/interview-coach/internal/audio"
	"github.com/spigell/interview-coach/internal/server"
	"github.com/spigell/interview-coach/internal/transcript"
)

const (
	app       = "interview-coach"
	envPrefix = "INTERVIEW_COACH"
)

type Config struct {
	Gemini    *GeminiConfig    `mapstructure:"gemini"`
	Interview *InterviewConfig `mapstructure:"interview"`
	Audio     *AudioConfig     `mapstructure:"audio"`
	Server    server.Config    `mapstructure:"server"`
	Export    *ExportConfig    `mapstructure:"export"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	SpeechModel  string `mapstructure:"speech-model"`
	Voice        string `mapstructure:"voice"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type InterviewConfig struct {
	MaxQuestions    int           `mapstructure:"max-questions"`
	ModelTimeout    time.Duration `mapstructure:"model-timeout"`
	CaptureTimeout  time.Duration `mapstructure:"capture-timeout"`
	SpeakTimeout    time.Duration `mapstructure:"speak-timeout"`
	SessionTTL      time.Duration `mapstructure:"session-ttl"`
	DisabledFilters []string      `mapstructure:"disabled-filters"`
}

type AudioConfig struct {
	RecordCommand string        `mapstructure:"record-command"`
	PlayCommand   string        `mapstructure:"play-command"`
	MaxAnswer     time.Duration `mapstructure:"max-answer"`
}

type ExportConfig struct {
	Dir    string          `mapstructure:"dir"`
	Format string          `mapstructure:"format"`
	Auto   bool            `mapstructure:"auto"`
	S3     *S3ExportConfig `mapstructure:"s3"`
}

type S3ExportConfig struct {
	Enabled             bool `mapstructure:"enabled"`
	transcript.S3Config `mapstructure:",squash"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interview-coach runs a voice mock interview based on your resume",
		Long: "interview-coach reads a resume, asks technical questions out loud, " +
			"listens to the spoken answers and reads back an evaluation of every answer.",
		Run: runInterview,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("gemini.api-key", "GEMINI_API_KEY"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY environment variable: %v", err)
	}
	if err := viper.BindEnv("gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interview-coach.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("gemini.api-key", "")
	viper.SetDefault("gemini.api-key-file", "")
	viper.SetDefault("gemini.model", "gemini-2.5-flash")
	viper.SetDefault("gemini.speech-model", "gemini-2.5-flash-preview-tts")
	viper.SetDefault("gemini.voice", "Kore")
	viper.SetDefault("gemini.max-retries", 3)
	viper.SetDefault("gemini.max-log-length", 200)

	viper.SetDefault("interview.max-questions", 7)
	viper.SetDefault("interview.model-timeout", 90*time.Second)
	viper.SetDefault("interview.capture-timeout", 60*time.Second)
	viper.SetDefault("interview.speak-timeout", 60*time.Second)
	viper.SetDefault("interview.session-ttl", 24*time.Hour)
	viper.SetDefault("interview.disabled-filters", []string{})

	viper.SetDefault("audio.record-command", audio.DefaultRecordCommand)
	viper.SetDefault("audio.play-command", audio.DefaultPlayCommand)
	viper.SetDefault("audio.max-answer", 30*time.Second)

	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.body-limit-mb", 20)
	viper.SetDefault("server.secure-cookie", false)

	viper.SetDefault("export.dir", "results")
	viper.SetDefault("export.format", "json")
	viper.SetDefault("export.auto", false)
	viper.SetDefault("export.s3.enabled", false)
	viper.SetDefault("export.s3.endpoint", "")
	viper.SetDefault("export.s3.bucket", "")
	viper.SetDefault("export.s3.access-key-id", "")
	viper.SetDefault("export.s3.secret-access-key", "")
	viper.SetDefault("export.s3.use-ssl", true)
	viper.SetDefault("export.s3.region", "")
	viper.SetDefault("export.s3.prefix", "")
}

func initConfig() {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config the file is optional.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
