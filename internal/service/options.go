package service

import "time"

type options struct {
	cache      DashboardCache
	dashboards DashboardInvalidator
	now        func() time.Time
}

type Option func(*options)

// WithCache подключает кэш дашбордов, без него дашборд всегда читается из хранилища
func WithCache(cache DashboardCache) Option {
	return func(o *options) {
		o.cache = cache
	}
}

// WithInvalidator задаёт, кого TaskService предупреждает об изменении задач.
// В приложении это DashboardService: он сбрасывает и кэш, и незавершённые сборки
func WithInvalidator(dashboards DashboardInvalidator) Option {
	return func(o *options) {
		o.dashboards = dashboards
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) invalidator() DashboardInvalidator {
	if o.dashboards != nil {
		return o.dashboards
	}
	if o.cache != nil {
		return o.cache
	}
	return nil
}
