package config_test

import (
	"testing"

	"github.com/ndiyar/vigil/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.BrokerURL, convey.ShouldEqual, "tcp://localhost:1883")
			convey.So(cfg.BrokerClientID, convey.ShouldEqual, "vigil-router")
			convey.So(cfg.PublishTimeoutMS, convey.ShouldEqual, 5000)
			convey.So(cfg.ResultQueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.SparseMax, convey.ShouldEqual, 0.33)
			convey.So(cfg.ModerateMax, convey.ShouldEqual, 0.66)
			convey.So(cfg.CrowdedMax, convey.ShouldEqual, 1.0)
			convey.So(cfg.FatigueLabels, convey.ShouldResemble, []string{"active", "tired", "exhausted"})
		})
	})
}
