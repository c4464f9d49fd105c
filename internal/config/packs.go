package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CreditPack is a purchasable bundle of credits backed by a Stripe price.
type CreditPack struct {
	ID            string `yaml:"id"`
	DisplayName   string `yaml:"display_name"`
	StripePriceID string `yaml:"stripe_price_id"`
	Credits       int    `yaml:"credits"`
}

type packsFile struct {
	Packs []CreditPack `yaml:"packs"`
}

// PackCatalog indexes credit packs by id.
type PackCatalog map[string]CreditPack

// Get returns the pack with the given id.
func (c PackCatalog) Get(id string) (CreditPack, bool) {
	pack, ok := c[id]
	return pack, ok
}

// LoadCreditPacks parses the credit pack catalog. A missing or empty file yields an empty catalog.
func LoadCreditPacks(path string) (PackCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return PackCatalog{}, nil
		}
		return nil, fmt.Errorf("read credit packs file: %w", err)
	}
	return ParseCreditPacks(data)
}

func ParseCreditPacks(data []byte) (PackCatalog, error) {
	catalog := PackCatalog{}
	if len(bytes.TrimSpace(data)) == 0 {
		return catalog, nil
	}

	var file packsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal credit packs yaml: %w", err)
	}

	for i, pack := range file.Packs {
		pack.ID = strings.TrimSpace(pack.ID)
		if pack.ID == "" {
			return nil, fmt.Errorf("packs[%d]: id is required", i)
		}
		if pack.StripePriceID == "" {
			return nil, fmt.Errorf("packs[%d]: stripe_price_id is required", i)
		}
		if pack.Credits <= 0 {
			return nil, fmt.Errorf("packs[%d]: credits must be positive", i)
		}
		if _, dup := catalog[pack.ID]; dup {
			return nil, fmt.Errorf("packs[%d]: duplicate id %q", i, pack.ID)
		}
		if pack.DisplayName == "" {
			pack.DisplayName = fmt.Sprintf("%d credits", pack.Credits)
		}
		catalog[pack.ID] = pack
	}
	return catalog, nil
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
