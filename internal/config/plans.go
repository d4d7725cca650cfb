package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	PlanFree = "FREE"
	PlanPro  = "PRO"

	// Unlimited marks a limit that is never enforced.
	Unlimited = -1
)

// Plan describes one subscription tier and what it unlocks.
type Plan struct {
	Code          string   `mapstructure:"code"`
	Name          string   `mapstructure:"name"`
	InvoiceLimit  int      `mapstructure:"invoiceLimit"`
	CustomerLimit int      `mapstructure:"customerLimit"`
	PriceMonthly  float64  `mapstructure:"priceMonthly"`
	Currency      string   `mapstructure:"currency"`
	StripePriceID string   `mapstructure:"stripePriceId"`
	Features      []string `mapstructure:"features"`
}

type PlansConfig struct {
	Plans []Plan `mapstructure:"plans"`
}

func DefaultPlansConfig() PlansConfig {
	return PlansConfig{
		Plans: []Plan{
			{
				Code:          PlanFree,
				Name:          "Free",
				InvoiceLimit:  5,
				CustomerLimit: 50,
				Currency:      "EUR",
				Features:      []string{"invoice.pdf"},
			},
			{
				Code:          PlanPro,
				Name:          "Pro",
				InvoiceLimit:  Unlimited,
				CustomerLimit: Unlimited,
				PriceMonthly:  4.99,
				Currency:      "EUR",
				Features:      []string{"invoice.pdf", "invoice.email", "invoice.export"},
			},
		},
	}
}

// Lookup returns the plan with the given code.
func (c PlansConfig) Lookup(code string) (Plan, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, p := range c.Plans {
		if p.Code == code {
			return p, true
		}
	}
	return Plan{}, false
}

// ByPriceID resolves the plan sold under a Stripe price id.
func (c PlansConfig) ByPriceID(priceID string) (Plan, bool) {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return Plan{}, false
	}
	for _, p := range c.Plans {
		if p.StripePriceID == priceID {
			return p, true
		}
	}
	return Plan{}, false
}

type PlansHolder struct {
	current atomic.Value // holds PlansConfig
}

// NewPlansHolder reads plans.yml from the usual config paths, falls back to
// the built-in catalogue, and reloads the file when it changes.
func NewPlansHolder(cfg Config) (*PlansHolder, error) {
	return loadPlans(cfg, "/etc/invoicer", ".")
}

func loadPlans(cfg Config, paths ...string) (*PlansHolder, error) {
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("INVOICER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fromFile := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fromFile = false
	}

	current, err := decodePlans(v, fromFile, cfg)
	if err != nil {
		return nil, err
	}

	holder := &PlansHolder{}
	holder.current.Store(current)

	if !fromFile {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodePlans(v, true, cfg)
		if err != nil {
			log.Printf("[plans-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[plans-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPlansHolder wraps a fixed catalogue.
func NewStaticPlansHolder(cfg PlansConfig) *PlansHolder {
	holder := &PlansHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PlansHolder) Get() PlansConfig {
	return h.current.Load().(PlansConfig)
}

func decodePlans(v *viper.Viper, fromFile bool, cfg Config) (PlansConfig, error) {
	out := DefaultPlansConfig()
	if fromFile {
		out = PlansConfig{}
		if err := v.Unmarshal(&out); err != nil {
			return PlansConfig{}, err
		}
	}

	for i := range out.Plans {
		out.Plans[i].Code = strings.ToUpper(strings.TrimSpace(out.Plans[i].Code))
		if out.Plans[i].Code == PlanPro && out.Plans[i].StripePriceID == "" {
			out.Plans[i].StripePriceID = cfg.Stripe.PriceIDPro
		}
	}

	if err := validatePlans(out); err != nil {
		return PlansConfig{}, err
	}
	return out, nil
}

func validatePlans(cfg PlansConfig) error {
	if len(cfg.Plans) == 0 {
		return errors.New("plans cannot be empty")
	}
	if _, ok := cfg.Lookup(PlanFree); !ok {
		return errors.New("plans must define FREE")
	}
	seen := make(map[string]struct{}, len(cfg.Plans))
	for _, p := range cfg.Plans {
		if p.Code == "" {
			return errors.New("plan code cannot be empty")
		}
		if _, dup := seen[p.Code]; dup {
			return fmt.Errorf("duplicate plan %s", p.Code)
		}
		seen[p.Code] = struct{}{}
		if p.InvoiceLimit < Unlimited || p.CustomerLimit < Unlimited {
			return fmt.Errorf("plan %s has an invalid limit", p.Code)
		}
	}
	return nil
}
