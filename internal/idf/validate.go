package idf

import "fmt"

// Severity classifies a validation issue. Fatal issues block conversion;
// warnings are recorded but do not.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	PageID   string   `json:"page_id,omitempty"`
	Message  string   `json:"message"`
}

// Issue codes.
const (
	CodeUnsupportedVersion = "unsupported_schema_version"
	CodeDuplicateElementID = "duplicate_element_id"
	CodeBadParentRef       = "unresolved_parent_ref"
	CodeSparseOrder        = "sparse_sibling_order"
	CodeBadAssetRef        = "unresolved_asset_ref"
	CodeMultipleHomepages  = "multiple_homepages"
	CodeNoHomepage         = "no_homepage"
	CodeMissingAltText     = "missing_alt_text"
)

// Validate checks the structural invariants of a document and returns all
// findings. It never mutates the document.
func Validate(doc *Document) []Issue {
	var issues []Issue

	if doc.Version != SchemaVersion {
		issues = append(issues, Issue{
			Severity: SeverityFatal,
			Code:     CodeUnsupportedVersion,
			Message:  fmt.Sprintf("schema version %q is not supported (want %s)", doc.Version, SchemaVersion),
		})
	}

	assetIDs := make(map[string]bool, len(doc.Assets))
	for _, a := range doc.Assets {
		assetIDs[a.ID] = true
	}

	seenElementIDs := make(map[string]string) // element id -> page id
	homepages := 0

	for _, page := range doc.Pages {
		if page.IsHomepage {
			homepages++
		}

		pageIDs := make(map[string]bool)
		page.WalkElements(func(el *Element) bool {
			pageIDs[el.ID] = true
			return true
		})

		page.WalkElements(func(el *Element) bool {
			if prev, ok := seenElementIDs[el.ID]; ok {
				issues = append(issues, Issue{
					Severity: SeverityFatal,
					Code:     CodeDuplicateElementID,
					PageID:   page.ID,
					Message:  fmt.Sprintf("element id %q already used on page %q", el.ID, prev),
				})
			} else {
				seenElementIDs[el.ID] = page.ID
			}

			if el.ParentID != "" && !pageIDs[el.ParentID] {
				issues = append(issues, Issue{
					Severity: SeverityFatal,
					Code:     CodeBadParentRef,
					PageID:   page.ID,
					Message:  fmt.Sprintf("element %q parent %q does not resolve within the page", el.ID, el.ParentID),
				})
			}

			for _, assetID := range el.AssetIDs {
				if !assetIDs[assetID] {
					issues = append(issues, Issue{
						Severity: SeverityFatal,
						Code:     CodeBadAssetRef,
						PageID:   page.ID,
						Message:  fmt.Sprintf("element %q references unknown asset %q", el.ID, assetID),
					})
				}
			}

			if el.Type == TypeImage && attrOrAlt(el, doc) == "" {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Code:     CodeMissingAltText,
					PageID:   page.ID,
					Message:  fmt.Sprintf("image element %q has no alt text", el.ID),
				})
			}

			issues = append(issues, checkSiblingOrder(page.ID, el.ID, el.Children)...)
			return true
		})

		issues = append(issues, checkSiblingOrder(page.ID, "", page.Elements)...)
	}

	if homepages > 1 {
		issues = append(issues, Issue{
			Severity: SeverityFatal,
			Code:     CodeMultipleHomepages,
			Message:  fmt.Sprintf("%d pages are flagged as homepage", homepages),
		})
	}
	// Zero pages is the extraction-failure state and carries no homepage.
	if homepages == 0 && len(doc.Pages) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityFatal,
			Code:     CodeNoHomepage,
			Message:  "document has pages but no homepage",
		})
	}

	return issues
}

// HasFatal reports whether any issue blocks conversion.
func HasFatal(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// checkSiblingOrder verifies that sibling order values form a dense
// 0..n-1 permutation.
func checkSiblingOrder(pageID, parentID string, siblings []*Element) []Issue {
	if len(siblings) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(siblings))
	ok := true
	for _, el := range siblings {
		if el.Order < 0 || el.Order >= len(siblings) || seen[el.Order] {
			ok = false
			break
		}
		seen[el.Order] = true
	}
	if ok {
		return nil
	}
	where := "page roots"
	if parentID != "" {
		where = fmt.Sprintf("children of %q", parentID)
	}
	return []Issue{{
		Severity: SeverityFatal,
		Code:     CodeSparseOrder,
		PageID:   pageID,
		Message:  fmt.Sprintf("sibling order of %s is not a dense 0..%d permutation", where, len(siblings)-1),
	}}
}

func attrOrAlt(el *Element, doc *Document) string {
	if alt := el.Attributes["alt"]; alt != "" {
		return alt
	}
	for _, id := range el.AssetIDs {
		if a := doc.AssetByID(id); a != nil && a.AltText != "" {
			return a.AltText
		}
	}
	return ""
}
