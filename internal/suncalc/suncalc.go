// Package suncalc decides when the camera site needs illumination and
// supplies the sunrise/sunset times that decision depends on.
package suncalc

import (
	"fmt"
	"sync"
	"time"

	"github.com/sj14/astral/pkg/astral"
)

// ShouldIlluminate reports whether the IR lamp should be on: before
// sunrise minus buffer, or after sunset plus buffer. Pure function; all
// times are compared as given.
func ShouldIlluminate(now, sunrise, sunset time.Time, buffer time.Duration) bool {
	return now.Before(sunrise.Add(-buffer)) || now.After(sunset.Add(buffer))
}

// SunTimes holds one day's sunrise and sunset in UTC.
type SunTimes struct {
	Sunrise time.Time
	Sunset  time.Time
}

// SunCalc computes and caches per-date sun times for a fixed observer.
type SunCalc struct {
	mu       sync.RWMutex
	cache    map[string]SunTimes
	observer astral.Observer
}

func New(latitude, longitude float64) *SunCalc {
	return &SunCalc{
		cache:    make(map[string]SunTimes),
		observer: astral.Observer{Latitude: latitude, Longitude: longitude},
	}
}

// SunTimes returns sunrise and sunset for the date, cached per day.
func (sc *SunCalc) SunTimes(date time.Time) (SunTimes, error) {
	key := date.UTC().Format("2006-01-02")

	sc.mu.RLock()
	cached, ok := sc.cache[key]
	sc.mu.RUnlock()
	if ok {
		return cached, nil
	}

	sunrise, err := astral.Sunrise(sc.observer, date)
	if err != nil {
		return SunTimes{}, fmt.Errorf("calculate sunrise: %w", err)
	}
	sunset, err := astral.Sunset(sc.observer, date)
	if err != nil {
		return SunTimes{}, fmt.Errorf("calculate sunset: %w", err)
	}

	times := SunTimes{Sunrise: sunrise.UTC(), Sunset: sunset.UTC()}
	sc.mu.Lock()
	sc.cache[key] = times
	sc.mu.Unlock()
	return times, nil
}
