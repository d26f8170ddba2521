package technical

import (
	"fmt"
	"math"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/indicators"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
)

// AlertKind classifies an unusual bar
type AlertKind string

const (
	AlertPriceMove      AlertKind = "PRICE_MOVE"
	AlertVolumeSpike    AlertKind = "VOLUME_SPIKE"
	AlertRSIExtreme     AlertKind = "RSI_EXTREME"
	AlertNearSupport    AlertKind = "NEAR_SUPPORT"
	AlertNearResistance AlertKind = "NEAR_RESISTANCE"
)

// Alert is an advisory flag raised during a scan
type Alert struct {
	Kind    AlertKind `json:"kind"`
	Message string    `json:"message"`
}

// Alerts checks the latest bar against the alert thresholds
func Alerts(series contracts.PriceSeries, s contracts.IndicatorSnapshot, levels Levels, window int, th strategyconfig.AlertThresholds) []Alert {
	alerts := []Alert{}

	if n := len(series); n >= 2 && series[n-2].Close != 0 {
		change := (series[n-1].Close - series[n-2].Close) / series[n-2].Close
		if th.PriceChange > 0 && math.Abs(change) >= th.PriceChange {
			alerts = append(alerts, Alert{
				Kind:    AlertPriceMove,
				Message: fmt.Sprintf("Price moved %+.1f%% in one session", change*100),
			})
		}
	}

	if vols := series.Volumes(); len(vols) > 1 {
		// baseline excludes the latest bar
		avg := indicators.TrailingMean(vols[:len(vols)-1], window)
		if th.VolumeSpike > 0 && avg > 0 && s.Volume >= avg*th.VolumeSpike {
			alerts = append(alerts, Alert{
				Kind:    AlertVolumeSpike,
				Message: fmt.Sprintf("Volume %.1fx the %d-day average", s.Volume/avg, window),
			})
		}
	}

	switch {
	case s.RSI <= th.RSILow:
		alerts = append(alerts, Alert{Kind: AlertRSIExtreme, Message: fmt.Sprintf("RSI %.1f at or below %g", s.RSI, th.RSILow)})
	case s.RSI >= th.RSIHigh:
		alerts = append(alerts, Alert{Kind: AlertRSIExtreme, Message: fmt.Sprintf("RSI %.1f at or above %g", s.RSI, th.RSIHigh)})
	}

	if s.Close > 0 && th.NearLevel > 0 {
		if sup, ok := levels.LastSupport(); ok && math.Abs(s.Close-sup)/s.Close < th.NearLevel {
			alerts = append(alerts, Alert{Kind: AlertNearSupport, Message: fmt.Sprintf("Close %.2f near support %.2f", s.Close, sup)})
		}
		if res, ok := levels.LastResistance(); ok && math.Abs(s.Close-res)/s.Close < th.NearLevel {
			alerts = append(alerts, Alert{Kind: AlertNearResistance, Message: fmt.Sprintf("Close %.2f near resistance %.2f", s.Close, res)})
		}
	}

	return alerts
}
