package domain

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// DefaultDealConfidence applies when neither the deal nor the parameters carry a confidence.
const DefaultDealConfidence = 0.75

// ScanParameters tunes a single scan. Build with DefaultScanParameters and override
// fields; zero is a legitimate value for several fields so defaults are only applied once.
type ScanParameters struct {
	DaysBeforeClose            int      `json:"daysBeforeClose" yaml:"days_before_close" default:"60" validate:"gte=0,lte=90"`
	DaysAfterClose             int      `json:"daysAfterClose" yaml:"days_after_close" default:"60" validate:"gte=0,lte=365"`
	StrikeLowerBoundPct        float64  `json:"strikeLowerBoundPct" yaml:"strike_lower_bound_pct" default:"20" validate:"gte=0,lte=50"`
	StrikeUpperBoundPct        float64  `json:"strikeUpperBoundPct" yaml:"strike_upper_bound_pct" default:"10" validate:"gte=0,lte=50"`
	ShortStrikeLowerPct        float64  `json:"shortStrikeLowerPct" yaml:"short_strike_lower_pct" default:"10" validate:"gte=0,lte=50"`
	ShortStrikeUpperPct        float64  `json:"shortStrikeUpperPct" yaml:"short_strike_upper_pct" default:"20" validate:"gte=0,lte=50"`
	TopStrategiesPerExpiration int      `json:"topStrategiesPerExpiration" yaml:"top_strategies_per_expiration" default:"5" validate:"gte=1,lte=20"`
	DealConfidence             *float64 `json:"dealConfidence,omitempty" yaml:"deal_confidence" validate:"omitempty,gte=0,lte=1"`
	MaxSpreadWidth             float64  `json:"maxSpreadWidth" yaml:"max_spread_width" default:"5" validate:"gt=0,lte=50"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// DefaultScanParameters returns the parameter set with every documented default applied.
func DefaultScanParameters() ScanParameters {
	var p ScanParameters
	if err := defaults.Set(&p); err != nil {
		// Only reachable if a default tag above is malformed.
		panic(fmt.Sprintf("domain.DefaultScanParameters: %v", err))
	}
	return p
}

// Validate rejects out-of-range and non-finite values. The first offending field is
// reported as an InvalidParameterError.
func (p ScanParameters) Validate() error {
	floats := map[string]float64{
		"strikeLowerBoundPct": p.StrikeLowerBoundPct,
		"strikeUpperBoundPct": p.StrikeUpperBoundPct,
		"shortStrikeLowerPct": p.ShortStrikeLowerPct,
		"shortStrikeUpperPct": p.ShortStrikeUpperPct,
		"maxSpreadWidth":      p.MaxSpreadWidth,
	}
	if p.DealConfidence != nil {
		floats["dealConfidence"] = *p.DealConfidence
	}
	names := make([]string, 0, len(floats))
	for name := range floats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if v := floats[name]; math.IsNaN(v) || math.IsInf(v, 0) {
			return InvalidParameterError(name, v, "must be a finite number")
		}
	}

	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return InvalidParameterError(fe.Field(), fe.Value(), ruleMessage(fe))
		}
		return fmt.Errorf("domain.ScanParameters.Validate: %w", err)
	}
	return nil
}

// Confidence resolves the deal-completion probability for a scan: the parameter
// override when present, otherwise the deal's own value, otherwise the default.
// An explicit 0 is kept and prices the break scenario only.
func (p ScanParameters) Confidence(d Deal) float64 {
	if p.DealConfidence != nil {
		return *p.DealConfidence
	}
	if d.Confidence != nil {
		return *d.Confidence
	}
	return DefaultDealConfidence
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	case "lt":
		return "must be < " + fe.Param()
	default:
		return "failed validation: " + fe.Tag()
	}
}

// ParseScanParameters builds parameters from caller-supplied strings keyed by the
// camelCase option names. Missing keys keep their defaults; unknown keys and values
// that do not parse are rejected rather than ignored.
func ParseScanParameters(raw map[string]string) (ScanParameters, error) {
	return ApplyScanParameters(DefaultScanParameters(), raw)
}

// ApplyScanParameters is ParseScanParameters over base instead of the defaults.
// base is copied, never modified.
func ApplyScanParameters(base ScanParameters, raw map[string]string) (ScanParameters, error) {
	p := base

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		val := strings.TrimSpace(raw[key])
		var err error
		switch key {
		case "daysBeforeClose":
			p.DaysBeforeClose, err = parseInt(key, val)
		case "daysAfterClose":
			p.DaysAfterClose, err = parseInt(key, val)
		case "strikeLowerBoundPct":
			p.StrikeLowerBoundPct, err = parseFloat(key, val)
		case "strikeUpperBoundPct":
			p.StrikeUpperBoundPct, err = parseFloat(key, val)
		case "shortStrikeLowerPct":
			p.ShortStrikeLowerPct, err = parseFloat(key, val)
		case "shortStrikeUpperPct":
			p.ShortStrikeUpperPct, err = parseFloat(key, val)
		case "topStrategiesPerExpiration":
			p.TopStrategiesPerExpiration, err = parseInt(key, val)
		case "dealConfidence":
			var c float64
			c, err = parseFloat(key, val)
			p.DealConfidence = &c
		case "maxSpreadWidth":
			p.MaxSpreadWidth, err = parseFloat(key, val)
		default:
			err = InvalidParameterError(key, val, "unknown parameter")
		}
		if err != nil {
			return ScanParameters{}, err
		}
	}

	if err := p.Validate(); err != nil {
		return ScanParameters{}, err
	}
	return p, nil
}

func parseInt(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, InvalidParameterError(name, s, "must be an integer")
	}
	return n, nil
}

func parseFloat(name, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, InvalidParameterError(name, s, "must be a finite number")
	}
	return f, nil
}
