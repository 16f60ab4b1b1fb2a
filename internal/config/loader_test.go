package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/ndiyar/vigil/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.BrokerURL, convey.ShouldEqual, "tcp://localhost:1883")
				convey.So(cfg.ResultQueueSize, convey.ShouldEqual, 1024)
				convey.So(cfg.StoreDSN, convey.ShouldEqual, "vigil.db")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("VIGIL_ADDR", ":8080")
			_ = os.Setenv("VIGIL_BROKER_URL", "tcp://broker:1883")
			_ = os.Setenv("VIGIL_RESULT_QUEUE_SIZE", "512")
			_ = os.Setenv("VIGIL_STORE_DSN", "test.db")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.BrokerURL, convey.ShouldEqual, "tcp://broker:1883")
				convey.So(cfg.ResultQueueSize, convey.ShouldEqual, 512)
				convey.So(cfg.StoreDSN, convey.ShouldEqual, "test.db")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
broker_url: "tcp://mqtt.internal:1883"
broker_client_id: "vigil-a"
result_queue_size: 2048
sparse_max: 0.25
moderate_max: 0.5
crowded_max: 1.0
fatigue_labels:
  - active
  - drowsy
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("VIGIL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.BrokerURL, convey.ShouldEqual, "tcp://mqtt.internal:1883")
				convey.So(cfg.BrokerClientID, convey.ShouldEqual, "vigil-a")
				convey.So(cfg.ResultQueueSize, convey.ShouldEqual, 2048)
				convey.So(cfg.SparseMax, convey.ShouldEqual, 0.25)
				convey.So(cfg.ModerateMax, convey.ShouldEqual, 0.5)
				convey.So(cfg.FatigueLabels, convey.ShouldResemble, []string{"active", "drowsy"})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
result_queue_size: 2048
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("VIGIL_CONFIG", tmpFile)
			_ = os.Setenv("VIGIL_ADDR", ":8080") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")         // Overridden by env
				convey.So(cfg.ResultQueueSize, convey.ShouldEqual, 2048) // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			invalidYaml := `invalid: yaml: content: [`
			tmpFile := createTempConfigFile(invalidYaml)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("VIGIL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("VIGIL_CONFIG", "/does/not/exist.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When thresholds are out of order", func() {
			_ = os.Setenv("VIGIL_SPARSE_MAX", "0.7")
			_ = os.Setenv("VIGIL_MODERATE_MAX", "0.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the queue size is not positive", func() {
			_ = os.Setenv("VIGIL_RESULT_QUEUE_SIZE", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	vars := []string{
		"VIGIL_CONFIG",
		"VIGIL_LOG_LEVEL",
		"VIGIL_ADDR",
		"VIGIL_BROKER_URL",
		"VIGIL_BROKER_CLIENT_ID",
		"VIGIL_PUBLISH_TIMEOUT_MS",
		"VIGIL_RESULT_QUEUE_SIZE",
		"VIGIL_STORE_DSN",
		"VIGIL_SPARSE_MAX",
		"VIGIL_MODERATE_MAX",
		"VIGIL_CROWDED_MAX",
		"VIGIL_FATIGUE_LABELS",
		"VIGIL_WS_READ_LIMIT",
	}
	for _, v := range vars {
		_ = os.Unsetenv(v)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "vigil-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	_ = tmpFile.Close()
	return tmpFile.Name()
}
