package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// maxTargeted is the number of folders refreshed one by one before a full
// library scan becomes the cheaper request.
const maxTargeted = 5

var (
	idSuffix   = regexp.MustCompile(`\s*\{[a-z]+-[^}]+\}\s*$`)
	yearSuffix = regexp.MustCompile(`\s*\((\d{4})\)\s*$`)
)

// JellyfinNotifier asks Jellyfin to rescan changed folders.
type JellyfinNotifier struct {
	baseURL string
	apiKey  string
	enabled bool
	client  *http.Client
}

func NewJellyfinNotifier(baseURL, apiKey string, enabled bool) *JellyfinNotifier {
	return &JellyfinNotifier{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		enabled: enabled && strings.TrimSpace(baseURL) != "" && strings.TrimSpace(apiKey) != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *JellyfinNotifier) Name() string {
	return "jellyfin"
}

func (n *JellyfinNotifier) Enabled() bool {
	return n.enabled
}

func (n *JellyfinNotifier) Ping(ctx context.Context) error {
	if !n.enabled {
		return nil
	}
	_, err := n.doJSONRequest(ctx, http.MethodGet, "/System/Info")
	return err
}

// Refresh refreshes each folder's item when Jellyfin already knows it and
// falls back to a library scan for new items or large batches.
func (n *JellyfinNotifier) Refresh(ctx context.Context, folders []string) error {
	if !n.enabled || len(folders) == 0 {
		return nil
	}
	if len(folders) > maxTargeted {
		return n.refreshLibrary(ctx)
	}

	for _, folder := range folders {
		found, err := n.targetedRefresh(ctx, folder)
		if err != nil || !found {
			return n.refreshLibrary(ctx)
		}
	}
	return nil
}

type jellyfinItem struct {
	ID             string `json:"Id"`
	Name           string `json:"Name"`
	Path           string `json:"Path"`
	ProductionYear int    `json:"ProductionYear"`
}

type jellyfinSearchResponse struct {
	Items []jellyfinItem `json:"Items"`
}

// targetedRefresh refreshes the item stored at folder. It reports false
// when Jellyfin has no such item yet.
func (n *JellyfinNotifier) targetedRefresh(ctx context.Context, folder string) (bool, error) {
	title, year := titleFromFolder(folder)
	if title == "" {
		return false, nil
	}

	items, err := n.searchItems(ctx, title)
	if err != nil {
		return false, err
	}

	want := normalizePath(folder)
	for _, item := range items {
		if item.Path != "" && normalizePath(item.Path) == want {
			return true, n.refreshItem(ctx, item.ID)
		}
	}
	for _, item := range items {
		if strings.EqualFold(strings.TrimSpace(item.Name), title) &&
			(year == 0 || item.ProductionYear == 0 || item.ProductionYear == year) {
			return true, n.refreshItem(ctx, item.ID)
		}
	}
	return false, nil
}

func (n *JellyfinNotifier) searchItems(ctx context.Context, term string) ([]jellyfinItem, error) {
	q := url.Values{}
	q.Set("SearchTerm", term)
	q.Set("Recursive", "true")
	q.Set("IncludeItemTypes", "Movie,Series")
	q.Set("Fields", "Path,ProductionYear")

	body, err := n.doJSONRequest(ctx, http.MethodGet, "/Items?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp jellyfinSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode jellyfin search response: %w", err)
	}
	return resp.Items, nil
}

func (n *JellyfinNotifier) refreshItem(ctx context.Context, itemID string) error {
	if strings.TrimSpace(itemID) == "" {
		return fmt.Errorf("item id is required")
	}
	_, err := n.doJSONRequest(ctx, http.MethodPost, "/Items/"+url.PathEscape(itemID)+"/Refresh")
	return err
}

func (n *JellyfinNotifier) refreshLibrary(ctx context.Context) error {
	_, err := n.doJSONRequest(ctx, http.MethodPost, "/Library/Refresh")
	return err
}

func (n *JellyfinNotifier) doJSONRequest(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, n.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", n.authHeader())
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jellyfin request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jellyfin returned status %d for %s %s", resp.StatusCode, method, path)
	}

	var out json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return out, nil
}

func (n *JellyfinNotifier) authHeader() string {
	return fmt.Sprintf(`MediaBrowser Token="%s", Client="cinesync", Device="cinesync", DeviceId="cinesync", Version="1.0.0"`, n.apiKey)
}

// titleFromFolder splits "Heat (1995) {imdb-tt0113277}" into its title and
// year.
func titleFromFolder(folder string) (string, int) {
	name := strings.TrimSpace(filepath.Base(folder))
	name = idSuffix.ReplaceAllString(name, "")

	year := 0
	if m := yearSuffix.FindStringSubmatch(name); m != nil {
		year, _ = strconv.Atoi(m[1])
		name = yearSuffix.ReplaceAllString(name, "")
	}
	return strings.TrimSpace(name), year
}

func normalizePath(path string) string {
	return filepath.Clean(strings.TrimSpace(path))
}
