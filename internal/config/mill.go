package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// BinSpec описывает бункер сырья в каталоге мельницы
type BinSpec struct {
	ID        string  `toml:"id"`
	Name      string  `toml:"name"`
	Available float64 `toml:"available"` // Доступный объем, кг (информативно)
}

// MillConfig - параметры производства мельницы: каталог бункеров,
// интервалы напоминаний об очистке и допустимые длительности таймеров
type MillConfig struct {
	Bins              []BinSpec        `toml:"bins"`
	ReminderIntervals map[string]int   `toml:"reminder_intervals"` // этап -> секунды
	AllowedDurations  map[string][]int `toml:"allowed_durations"`  // этап -> часы
}

// DefaultMill возвращает стандартную конфигурацию мельницы
func DefaultMill() MillConfig {
	return MillConfig{
		Bins: []BinSpec{
			{ID: "A", Name: "Bin A", Available: 18000},
			{ID: "B", Name: "Bin B", Available: 22000},
			{ID: "C", Name: "Bin C", Available: 15000},
			{ID: "D", Name: "Bin D", Available: 20000},
			{ID: "E", Name: "Bin E", Available: 45000},
			{ID: "F", Name: "Bin F", Available: 52000},
		},
		ReminderIntervals: map[string]int{
			"24h_cleaning": 60,
			"12h_cleaning": 30,
			"grinding":     10,
		},
		AllowedDurations: map[string][]int{
			"24h_cleaning": {24, 12, 8},
			"12h_cleaning": {12, 8, 6},
			"grinding":     {8, 6, 4},
		},
	}
}

// LoadMillFile читает TOML файл мельницы поверх значений по умолчанию.
// Пустой путь возвращает DefaultMill.
func LoadMillFile(path string) (MillConfig, error) {
	mill := DefaultMill()
	if strings.TrimSpace(path) == "" {
		return mill, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return mill, fmt.Errorf("open mill config: %w", err)
	}
	defer file.Close()

	var override MillConfig
	if err := toml.NewDecoder(file).Decode(&override); err != nil {
		return mill, fmt.Errorf("parse mill config: %w", err)
	}

	if len(override.Bins) > 0 {
		mill.Bins = override.Bins
	}
	for stage, seconds := range override.ReminderIntervals {
		mill.ReminderIntervals[stage] = seconds
	}
	for stage, hours := range override.AllowedDurations {
		mill.AllowedDurations[stage] = hours
	}

	if err := mill.Validate(); err != nil {
		return DefaultMill(), err
	}
	return mill, nil
}

// Validate проверяет каталог бункеров и интервалы
func (m MillConfig) Validate() error {
	if len(m.Bins) == 0 {
		return errors.New("mill config: bin catalog is empty")
	}
	seen := make(map[string]struct{}, len(m.Bins))
	for _, bin := range m.Bins {
		if strings.TrimSpace(bin.ID) == "" {
			return errors.New("mill config: bin id is required")
		}
		if _, dup := seen[bin.ID]; dup {
			return fmt.Errorf("mill config: duplicate bin id %q", bin.ID)
		}
		if bin.Available < 0 {
			return fmt.Errorf("mill config: bin %q has negative capacity", bin.ID)
		}
		seen[bin.ID] = struct{}{}
	}
	for stage, seconds := range m.ReminderIntervals {
		if seconds <= 0 {
			return fmt.Errorf("mill config: reminder interval for %s must be positive", stage)
		}
	}
	for stage, hours := range m.AllowedDurations {
		for _, h := range hours {
			if h <= 0 {
				return fmt.Errorf("mill config: duration %dh for %s must be positive", h, stage)
			}
		}
	}
	return nil
}
