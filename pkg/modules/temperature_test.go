package modules

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v4/sensors"
)

func testTemperature(cfg TemperatureConfig, stats []sensors.TemperatureStat, err error) *Temperature {
	m := NewTemperature(cfg)
	m.read = func(context.Context) ([]sensors.TemperatureStat, error) {
		return stats, err
	}
	return m
}

func TestTemperaturePicksHottestMatch(t *testing.T) {
	stats := []sensors.TemperatureStat{
		{SensorKey: "coretemp_core_0", Temperature: 61},
		{SensorKey: "coretemp_core_1", Temperature: 67},
		{SensorKey: "nvme_composite", Temperature: 80},
	}
	m := testTemperature(TemperatureConfig{Sensor: "coretemp", MinShow: 45}, stats, nil)

	got, err := m.Render(context.Background(), testView(nil, false))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if want := "temp 67C"; got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestTemperatureHidesWhenCool(t *testing.T) {
	stats := []sensors.TemperatureStat{
		{SensorKey: "coretemp_core_0", Temperature: 38},
	}
	m := testTemperature(TemperatureConfig{MinShow: 45}, stats, nil)

	got, err := m.Render(context.Background(), testView(nil, false))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "" {
		t.Errorf("Render = %q, want empty below min_show", got)
	}
}

func TestTemperatureHidesWithoutMatch(t *testing.T) {
	stats := []sensors.TemperatureStat{
		{SensorKey: "nvme_composite", Temperature: 80},
	}
	m := testTemperature(TemperatureConfig{Sensor: "coretemp"}, stats, nil)

	got, err := m.Render(context.Background(), testView(nil, false))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "" {
		t.Errorf("Render = %q, want empty when no sensor matches", got)
	}
}

func TestTemperatureThresholdColors(t *testing.T) {
	cfg := TemperatureConfig{MinShow: 45, WarnAbove: 70, CritAbove: 85}
	cases := []struct {
		temp float64
		want string
	}{
		{60, "temp 60C"},
		{72, "^fg(#ffff00)temp 72C^fg()"},
		{91, "^fg(#ff0000)temp 91C^fg()"},
	}
	for _, c := range cases {
		stats := []sensors.TemperatureStat{{SensorKey: "coretemp", Temperature: c.temp}}
		m := testTemperature(cfg, stats, nil)
		got, err := m.Render(context.Background(), testView(nil, false))
		if err != nil {
			t.Fatalf("Render(%v): %v", c.temp, err)
		}
		if got != c.want {
			t.Errorf("Render(%v) = %q, want %q", c.temp, got, c.want)
		}
	}
}

func TestTemperaturePartialFailureStillRenders(t *testing.T) {
	stats := []sensors.TemperatureStat{
		{SensorKey: "coretemp_core_0", Temperature: 66},
	}
	m := testTemperature(TemperatureConfig{MinShow: 45}, stats, errors.New("one sensor unreadable"))

	got, err := m.Render(context.Background(), testView(nil, false))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if want := "temp 66C"; got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestTemperatureTotalFailure(t *testing.T) {
	m := testTemperature(TemperatureConfig{}, nil, errors.New("no sensors"))
	if _, err := m.Render(context.Background(), testView(nil, false)); err == nil {
		t.Fatal("Render should fail when no sensor can be read")
	}
}
