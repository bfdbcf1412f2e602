package assets

var platformKindsByCategory = map[Category][]PlatformKind{
	CategoryBackground: {PlatformBanner},
	CategoryAvatar:     {PlatformAvatar},
	CategoryFrame:      {PlatformDecoration},
}

var vaultTypesByCategory = map[Category][]VaultType{
	CategoryBackground: {VaultImage, VaultVideo},
	CategoryAvatar:     {VaultImage},
	CategoryAudio:      {VaultAudio},
	CategoryCursor:     {VaultCursor, VaultImage},
}

// AcceptsVault reports whether an uploaded file of vaultType can be picked
// for category.
func AcceptsVault(category Category, vaultType VaultType) bool {
	for _, accepted := range vaultTypesByCategory[category] {
		if accepted == vaultType {
			return true
		}
	}
	return false
}

func acceptsPlatform(category Category, kind PlatformKind) bool {
	for _, accepted := range platformKindsByCategory[category] {
		if accepted == kind {
			return true
		}
	}
	return false
}

// Resolve builds the ordered candidate list for category: platform media
// first, then vault uploads, then owned store items. Order inside each
// group follows the input.
func Resolve(category Category, store []StoreItem, vault []VaultItem, platform []PlatformItem) []Asset {
	resolved := make([]Asset, 0, len(store)+len(vault)+len(platform))

	for _, item := range platform {
		if item.URL != "" && acceptsPlatform(category, item.Kind) {
			resolved = append(resolved, FromPlatform(item))
		}
	}
	for _, item := range vault {
		if AcceptsVault(category, item.Type) {
			resolved = append(resolved, FromVault(item))
		}
	}
	for _, item := range store {
		if item.Owned && item.Type == category {
			resolved = append(resolved, FromStore(item))
		}
	}

	return resolved
}

const (
	DefaultPageSize = 8
	MaxPageSize     = 100
)

func clampPageSize(size int) int {
	if size < 2 {
		return DefaultPageSize
	}
	return min(size, MaxPageSize)
}

// Page is one grid page of a resolved list. The first page reserves its
// leading slot for the "none" choice that reverts the category to default.
type Page struct {
	Number      int     `json:"page"`
	Size        int     `json:"size"`
	TotalPages  int     `json:"totalPages"`
	Total       int     `json:"total"`
	DefaultSlot bool    `json:"defaultSlot"`
	Items       []Asset `json:"items"`
}

// Paginate slices list into pages of size slots. Page 0 holds the default
// slot plus up to size-1 assets; every later page holds up to size assets.
// Sizes above MaxPageSize are capped and pages past the end come back empty.
func Paginate(list []Asset, page, size int) Page {
	size = clampPageSize(size)
	if page < 0 {
		page = 0
	}

	total := len(list)
	result := Page{
		Number:      page,
		Size:        size,
		TotalPages:  TotalPages(total, size),
		Total:       total,
		DefaultSlot: page == 0,
		Items:       []Asset{},
	}

	if page >= result.TotalPages {
		return result
	}

	start, end := 0, min(size-1, total)
	if page > 0 {
		start = (size - 1) + (page-1)*size
		end = min(start+size, total)
	}
	if start >= total {
		return result
	}

	result.Items = append(result.Items, list[start:end]...)
	return result
}

// TotalPages counts the pages needed for total assets, the default slot
// included. An empty list still has one page.
func TotalPages(total, size int) int {
	size = clampPageSize(size)
	firstPage := size - 1
	if total <= firstPage {
		return 1
	}
	remaining := total - firstPage
	return 1 + (remaining+size-1)/size
}
