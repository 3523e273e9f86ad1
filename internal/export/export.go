// Package export renders search results and favorites as downloadable
// CSV or JSON documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"booth-outfit-search/internal/domain"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrUnknownFormat is returned by ParseFormat for anything but json or csv.
var ErrUnknownFormat = errors.New("unknown export format")

// utf8BOM lets spreadsheet applications detect the encoding of CSV files.
const utf8BOM = "\ufeff"

const (
	addedAtLayout  = "2006-01-02 15:04"
	filenameLayout = "20060102_150405"
)

var (
	resultHeader   = []string{"ID", "이름", "가격", "가격(숫자)", "URL", "썸네일", "판매자", "좋아요"}
	favoriteHeader = []string{"ID", "이름", "가격", "URL", "판매자", "메모", "추가일"}
)

// ParseFormat returns the format named s. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// Filename returns booth_<query>_<timestamp>.<ext>, with every character of
// query other than letters, digits, '.', '_' and '-' replaced by '_'.
func Filename(query string, f Format, now time.Time) string {
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._-", r) {
			return r
		}
		return '_'
	}, query)

	return fmt.Sprintf("booth_%s_%s.%s", safe, now.Format(filenameLayout), f)
}

type resultDocument struct {
	ExportedAt  string        `json:"exported_at"`
	Query       string        `json:"query"`
	TotalCount  int           `json:"total_count"`
	CurrentPage int           `json:"current_page"`
	TotalPages  int           `json:"total_pages"`
	ItemsCount  int           `json:"items_count"`
	Items       []domain.Item `json:"items"`
}

type favoritesDocument struct {
	ExportedAt string            `json:"exported_at"`
	Count      int               `json:"count"`
	Favorites  []domain.Favorite `json:"favorites"`
}

// WriteResult writes result in format f.
func WriteResult(w io.Writer, f Format, result *domain.SearchResult, now time.Time) error {
	if f == FormatCSV {
		return writeResultCSV(w, result)
	}

	items := result.Items
	if items == nil {
		items = []domain.Item{}
	}
	return writeJSON(w, resultDocument{
		ExportedAt:  now.Format(time.RFC3339),
		Query:       result.Query,
		TotalCount:  result.TotalCount,
		CurrentPage: result.CurrentPage,
		TotalPages:  result.TotalPages,
		ItemsCount:  len(items),
		Items:       items,
	})
}

// WriteFavorites writes favs in format f.
func WriteFavorites(w io.Writer, f Format, favs []domain.Favorite, now time.Time) error {
	if f == FormatCSV {
		return writeFavoritesCSV(w, favs)
	}

	if favs == nil {
		favs = []domain.Favorite{}
	}
	return writeJSON(w, favoritesDocument{
		ExportedAt: now.Format(time.RFC3339),
		Count:      len(favs),
		Favorites:  favs,
	})
}

func writeJSON(w io.Writer, doc any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

func writeResultCSV(w io.Writer, result *domain.SearchResult) error {
	rows := make([][]string, 0, len(result.Items))
	for _, item := range result.Items {
		rows = append(rows, []string{
			item.ID,
			item.Name,
			item.PriceText,
			optionalInt(item.PriceValue),
			item.URL,
			item.ThumbnailURL,
			item.ShopName,
			strconv.Itoa(item.Likes),
		})
	}
	return writeCSV(w, resultHeader, rows)
}

func writeFavoritesCSV(w io.Writer, favs []domain.Favorite) error {
	rows := make([][]string, 0, len(favs))
	for _, fav := range favs {
		rows = append(rows, []string{
			fav.ItemID,
			fav.Name,
			fav.PriceText,
			fav.URL,
			fav.ShopName,
			fav.Memo,
			fav.AddedAt.Format(addedAtLayout),
		})
	}
	return writeCSV(w, favoriteHeader, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing export rows: %w", err)
	}
	return nil
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
