package converter

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"

	"github.com/siteporter/siteporter-backend/internal/idf"
)

// WXR (WordPress eXtended RSS) export. Timestamps are intentionally
// absent so the same document always serializes to the same bytes.

const wxrVersion = "1.2"

type wxrRSS struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	ExcWP   string     `xml:"xmlns:wp,attr"`
	ExcDC   string     `xml:"xmlns:dc,attr"`
	Channel wxrChannel `xml:"channel"`
}

type wxrChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	WXRVersion  string    `xml:"wp:wxr_version"`
	Items       []wxrItem `xml:"item"`
}

type wxrItem struct {
	Title      string       `xml:"title"`
	Link       string       `xml:"link"`
	PostID     int          `xml:"wp:post_id"`
	PostName   string       `xml:"wp:post_name"`
	PostType   string       `xml:"wp:post_type"`
	Status     string       `xml:"wp:status"`
	MenuOrder  int          `xml:"wp:menu_order"`
	Content    wxrCDATA     `xml:"content:encoded"`
	AttachURL  string       `xml:"wp:attachment_url,omitempty"`
	PostMeta   []wxrMeta    `xml:"wp:postmeta"`
}

type wxrMeta struct {
	Key   string   `xml:"wp:meta_key"`
	Value wxrCDATA `xml:"wp:meta_value"`
}

type wxrCDATA struct {
	Value string `xml:",cdata"`
}

// buildWXR serializes the converted pages and media library as a
// WordPress import file. Page widget trees travel in the _elementor_data
// meta field, the way Elementor stores them.
func buildWXR(doc *idf.Document, pages []TargetPage) (string, error) {
	rss := wxrRSS{
		Version: "2.0",
		ExcWP:   "http://wordpress.org/export/1.2/",
		ExcDC:   "http://purl.org/dc/elements/1.1/",
		Channel: wxrChannel{
			Title:       doc.ID,
			Link:        doc.SourceURL,
			Description: fmt.Sprintf("Migrated from %s", doc.SourcePlatform),
			WXRVersion:  wxrVersion,
		},
	}

	postID := 1
	for _, page := range pages {
		data, err := json.Marshal(page.Widgets)
		if err != nil {
			return "", fmt.Errorf("marshal widgets for %q: %w", page.Slug, err)
		}
		item := wxrItem{
			Title:     page.Title,
			Link:      page.Path,
			PostID:    postID,
			PostName:  page.Slug,
			PostType:  "page",
			Status:    page.Status,
			MenuOrder: postID - 1,
			PostMeta: []wxrMeta{
				{Key: "_elementor_data", Value: wxrCDATA{Value: string(data)}},
				{Key: "_elementor_edit_mode", Value: wxrCDATA{Value: "builder"}},
				{Key: "_wp_page_template", Value: wxrCDATA{Value: "elementor_header_footer"}},
			},
		}
		if page.SEO.Title != "" {
			item.PostMeta = append(item.PostMeta, wxrMeta{Key: "_yoast_wpseo_title", Value: wxrCDATA{Value: page.SEO.Title}})
		}
		if page.SEO.Description != "" {
			item.PostMeta = append(item.PostMeta, wxrMeta{Key: "_yoast_wpseo_metadesc", Value: wxrCDATA{Value: page.SEO.Description}})
		}
		rss.Channel.Items = append(rss.Channel.Items, item)
		postID++
	}

	assets := make([]idf.Asset, len(doc.Assets))
	copy(assets, doc.Assets)
	sort.Slice(assets, func(i, j int) bool { return assets[i].ID < assets[j].ID })
	for _, asset := range assets {
		if asset.Missing {
			continue
		}
		rss.Channel.Items = append(rss.Channel.Items, wxrItem{
			Title:     asset.ID,
			Link:      asset.OriginalURL,
			PostID:    postID,
			PostName:  asset.ID,
			PostType:  "attachment",
			Status:    "inherit",
			AttachURL: firstNonEmpty(asset.StorageURL, asset.OriginalURL),
			Content:   wxrCDATA{Value: asset.AltText},
			PostMeta: []wxrMeta{
				{Key: "_wp_attachment_image_alt", Value: wxrCDATA{Value: asset.AltText}},
			},
		})
		postID++
	}

	out, err := xml.MarshalIndent(rss, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal wxr: %w", err)
	}
	return xml.Header + string(out), nil
}
