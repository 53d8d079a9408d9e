package observe

import (
	"time"

	"go.uber.org/zap"

	"github.com/danpasecinic/stitch"
)

type zapObserver struct {
	logger *zap.Logger
}

// Zap logs registrations and resolutions at debug level and lifecycle hooks at
// info level. Failures are logged at error level.
func Zap(logger *zap.Logger) stitch.Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapObserver{logger: logger.Named("stitch")}
}

func (o *zapObserver) Options() []stitch.Option {
	return []stitch.Option{
		stitch.WithRegisterObserver(o.register),
		stitch.WithResolveObserver(o.resolve),
		stitch.WithInitObserver(o.init),
		stitch.WithDestroyObserver(o.destroy),
	}
}

func (o *zapObserver) register(module, token string) {
	o.logger.Debug("provider registered",
		zap.String("module", module),
		zap.String("token", token),
	)
}

func (o *zapObserver) resolve(module, token string, d time.Duration, err error) {
	if err != nil {
		o.logger.Error("resolution failed", fields(module, token, d, err)...)
		return
	}
	o.logger.Debug("resolved", fields(module, token, d, nil)...)
}

func (o *zapObserver) init(module, token string, d time.Duration, err error) {
	if err != nil {
		o.logger.Error("init hook failed", fields(module, token, d, err)...)
		return
	}
	o.logger.Info("initialized", fields(module, token, d, nil)...)
}

func (o *zapObserver) destroy(module, token string, d time.Duration, err error) {
	if err != nil {
		o.logger.Error("destroy hook failed", fields(module, token, d, err)...)
		return
	}
	o.logger.Info("destroyed", fields(module, token, d, nil)...)
}

func fields(module, token string, d time.Duration, err error) []zap.Field {
	fs := []zap.Field{
		zap.String("module", module),
		zap.String("token", token),
		zap.Duration("duration", d),
	}
	if err != nil {
		fs = append(fs, zap.Error(err))
	}
	return fs
}
