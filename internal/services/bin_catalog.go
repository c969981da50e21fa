package services

import (
	"sort"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/config"
)

// Bin - бункер сырья
type Bin struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Available float64 `json:"available"` // кг, информативно
}

// BinCatalog - неизменяемый каталог бункеров мельницы
type BinCatalog struct {
	bins  []Bin
	index map[string]Bin
}

// NewBinCatalog строит каталог из конфигурации мельницы
func NewBinCatalog(mill config.MillConfig) *BinCatalog {
	catalog := &BinCatalog{index: make(map[string]Bin, len(mill.Bins))}
	for _, cfg := range mill.Bins {
		name := cfg.Name
		if name == "" {
			name = "Bin " + cfg.ID
		}
		bin := Bin{ID: cfg.ID, Name: name, Available: cfg.Available}
		catalog.bins = append(catalog.bins, bin)
		catalog.index[bin.ID] = bin
	}
	sort.Slice(catalog.bins, func(i, j int) bool { return catalog.bins[i].ID < catalog.bins[j].ID })
	return catalog
}

func (c *BinCatalog) List() []Bin {
	return append([]Bin(nil), c.bins...)
}

func (c *BinCatalog) Get(id string) (Bin, bool) {
	bin, ok := c.index[id]
	return bin, ok
}
