// Package assets merges the three sources a profile can pick visuals from
// (purchased store items, uploaded vault files and platform-linked media)
// into one ranked, paginated catalogue per customization category.
package assets

import (
	"encoding/json"
	"strings"
	"time"
)

type Provenance string

const (
	ProvenanceStore    Provenance = "store"
	ProvenanceVault    Provenance = "vault"
	ProvenancePlatform Provenance = "platform"
)

type Category string

const (
	CategoryBackground Category = "background"
	CategoryAvatar     Category = "avatar"
	CategoryFrame      Category = "frame"
	CategoryAudio      Category = "audio"
	CategoryCursor     Category = "cursor"
)

func ParseCategory(value string) (Category, bool) {
	category := Category(strings.ToLower(strings.TrimSpace(value)))
	switch category {
	case CategoryBackground, CategoryAvatar, CategoryFrame, CategoryAudio, CategoryCursor:
		return category, true
	}
	return "", false
}

// VaultType is the kind of file a user uploaded.
type VaultType string

const (
	VaultImage  VaultType = "image"
	VaultVideo  VaultType = "video"
	VaultAudio  VaultType = "audio"
	VaultCursor VaultType = "cursor"
)

func ParseVaultType(value string) (VaultType, bool) {
	vaultType := VaultType(strings.ToLower(strings.TrimSpace(value)))
	switch vaultType {
	case VaultImage, VaultVideo, VaultAudio, VaultCursor:
		return vaultType, true
	}
	return "", false
}

// PlatformKind is the kind of media exposed by a linked external account.
type PlatformKind string

const (
	PlatformAvatar     PlatformKind = "avatar"
	PlatformBanner     PlatformKind = "banner"
	PlatformDecoration PlatformKind = "decoration"
)

// Rarity orders assets for display. Exclusive sits above every curated
// store rarity and is reserved for platform-linked media.
type Rarity int

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
	RarityExclusive
)

var rarityNames = []string{"common", "uncommon", "rare", "epic", "legendary", "exclusive"}

func (r Rarity) String() string {
	if r < RarityCommon || int(r) >= len(rarityNames) {
		return rarityNames[RarityCommon]
	}
	return rarityNames[r]
}

// ParseRarity maps a curated rarity label; anything unknown is common.
// Exclusive cannot be assigned to store items.
func ParseRarity(value string) Rarity {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for i, name := range rarityNames {
		if name == normalized && Rarity(i) != RarityExclusive {
			return Rarity(i)
		}
	}
	return RarityCommon
}

func (r Rarity) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Rarity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, candidate := range rarityNames {
		if candidate == strings.ToLower(name) {
			*r = Rarity(i)
			return nil
		}
	}
	*r = RarityCommon
	return nil
}

type StoreItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ImageURL string   `json:"imageUrl"`
	Rarity   string   `json:"rarity"`
	Type     Category `json:"type"`
	Owned    bool     `json:"owned"`
}

type VaultItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Type      VaultType `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

type PlatformItem struct {
	Kind     PlatformKind `json:"kind"`
	URL      string       `json:"url"`
	Provider string       `json:"provider"`
}

// Asset is a selectable item from exactly one source. Provenance tells
// which of Store, Vault or Platform is set.
type Asset struct {
	Provenance Provenance    `json:"provenance"`
	Rarity     Rarity        `json:"rarity"`
	Store      *StoreItem    `json:"store,omitempty"`
	Vault      *VaultItem    `json:"vault,omitempty"`
	Platform   *PlatformItem `json:"platform,omitempty"`
}

func FromStore(item StoreItem) Asset {
	return Asset{Provenance: ProvenanceStore, Rarity: ParseRarity(item.Rarity), Store: &item}
}

func FromVault(item VaultItem) Asset {
	return Asset{Provenance: ProvenanceVault, Rarity: RarityCommon, Vault: &item}
}

func FromPlatform(item PlatformItem) Asset {
	return Asset{Provenance: ProvenancePlatform, Rarity: RarityExclusive, Platform: &item}
}

// ID is the stable identifier. Platform media has none, so its URL stands in.
func (a Asset) ID() string {
	switch a.Provenance {
	case ProvenanceStore:
		if a.Store != nil {
			return a.Store.ID
		}
	case ProvenanceVault:
		if a.Vault != nil {
			return a.Vault.ID
		}
	case ProvenancePlatform:
		if a.Platform != nil {
			return a.Platform.URL
		}
	}
	return ""
}

func (a Asset) URL() string {
	switch a.Provenance {
	case ProvenanceStore:
		if a.Store != nil {
			return a.Store.ImageURL
		}
	case ProvenanceVault:
		if a.Vault != nil {
			return a.Vault.URL
		}
	case ProvenancePlatform:
		if a.Platform != nil {
			return a.Platform.URL
		}
	}
	return ""
}

func (a Asset) Name() string {
	switch a.Provenance {
	case ProvenanceStore:
		if a.Store != nil {
			return a.Store.Name
		}
	case ProvenanceVault:
		if a.Vault != nil {
			return a.Vault.Name
		}
	case ProvenancePlatform:
		if a.Platform != nil {
			return a.Platform.Provider + " " + string(a.Platform.Kind)
		}
	}
	return ""
}
