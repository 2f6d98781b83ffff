package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RequestPolicy holds the tunable rules of the request lifecycle.
type RequestPolicy struct {
	StrictTransitions bool     `mapstructure:"strictTransitions"`
	PendingStatuses   []string `mapstructure:"pendingStatuses"`
	ActiveStatuses    []string `mapstructure:"activeStatuses"`
}

func DefaultRequestPolicy() RequestPolicy {
	return RequestPolicy{
		StrictTransitions: true,
		PendingStatuses:   []string{"revision", "needs_info", "for_review", "for_approval"},
		ActiveStatuses:    []string{"queued", "in_progress", "for_review", "for_approval", "revision", "needs_info"},
	}
}

type RequestPolicyHolder struct {
	current atomic.Value // holds RequestPolicy
}

// NewStaticRequestPolicyHolder returns a holder that never reloads.
func NewStaticRequestPolicyHolder(policy RequestPolicy) *RequestPolicyHolder {
	holder := &RequestPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewRequestPolicyHolder(log *zap.Logger) (*RequestPolicyHolder, error) {
	log = log.Named("config.requests")
	v := viper.New()

	v.SetConfigName("requests")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/servicedesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SERVICEDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRequestPolicy()
	v.SetDefault("requests.strictTransitions", defaults.StrictTransitions)
	v.SetDefault("requests.pendingStatuses", defaults.PendingStatuses)
	v.SetDefault("requests.activeStatuses", defaults.ActiveStatuses)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	var policy RequestPolicy
	if err := v.UnmarshalKey("requests", &policy); err != nil {
		return nil, err
	}
	if err := validateRequestPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticRequestPolicyHolder(policy)
	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RequestPolicy
		if err := v.UnmarshalKey("requests", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateRequestPolicy(updated); err != nil {
			log.Warn("invalid policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("request policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *RequestPolicyHolder) Get() RequestPolicy {
	if h == nil {
		return DefaultRequestPolicy()
	}
	policy, ok := h.current.Load().(RequestPolicy)
	if !ok {
		return DefaultRequestPolicy()
	}
	return policy
}

func validateRequestPolicy(policy RequestPolicy) error {
	if len(policy.PendingStatuses) == 0 {
		return errors.New("requests.pendingStatuses cannot be empty")
	}
	if len(policy.ActiveStatuses) == 0 {
		return errors.New("requests.activeStatuses cannot be empty")
	}
	return nil
}
