package idf

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() *Document {
	return &Document{
		ID:             "doc-1",
		Version:        SchemaVersion,
		SourcePlatform: "wix",
		SourceURL:      "https://example.com",
		Pages: []*Page{
			{
				ID:         "page-home",
				Title:      "Home",
				Slug:       "home",
				Path:       "/",
				IsHomepage: true,
				Elements: []*Element{
					{
						ID:    "el-1",
						Type:  TypeSection,
						Order: 0,
						Children: []*Element{
							{ID: "el-2", Type: TypeHeading, Content: "Welcome", ParentID: "el-1", Order: 0},
							{ID: "el-3", Type: TypeImage, AssetIDs: []string{"asset-abc"}, ParentID: "el-1", Order: 1,
								Attributes: map[string]string{"alt": "logo"}},
						},
					},
				},
			},
		},
		Assets: []Asset{
			{ID: "asset-abc", Type: "image", OriginalURL: "https://example.com/a.png", AltText: "logo"},
		},
	}
}

func TestValidate_CleanDocument(t *testing.T) {
	issues := Validate(validDocument())
	assert.Empty(t, issues)
	assert.False(t, HasFatal(issues))
}

func TestValidate_FatalIssues(t *testing.T) {
	t.Run("unsupported version", func(t *testing.T) {
		doc := validDocument()
		doc.Version = "9.0.0"
		issues := Validate(doc)
		require.True(t, HasFatal(issues))
		assert.Equal(t, CodeUnsupportedVersion, issues[0].Code)
	})

	t.Run("duplicate element ids", func(t *testing.T) {
		doc := validDocument()
		doc.Pages[0].Elements[0].Children[1].ID = "el-2"
		issues := Validate(doc)
		require.True(t, HasFatal(issues))
		assert.True(t, hasCode(issues, CodeDuplicateElementID))
	})

	t.Run("dangling parent reference", func(t *testing.T) {
		doc := validDocument()
		doc.Pages[0].Elements[0].Children[0].ParentID = "el-nope"
		issues := Validate(doc)
		require.True(t, HasFatal(issues))
		assert.True(t, hasCode(issues, CodeBadParentRef))
	})

	t.Run("sparse sibling order", func(t *testing.T) {
		doc := validDocument()
		doc.Pages[0].Elements[0].Children[1].Order = 5
		issues := Validate(doc)
		require.True(t, HasFatal(issues))
		assert.True(t, hasCode(issues, CodeSparseOrder))
	})

	t.Run("multiple homepages", func(t *testing.T) {
		doc := validDocument()
		doc.Pages = append(doc.Pages, &Page{ID: "page-2", Slug: "about", IsHomepage: true})
		issues := Validate(doc)
		require.True(t, HasFatal(issues))
		assert.True(t, hasCode(issues, CodeMultipleHomepages))
	})

	t.Run("no homepage with pages present", func(t *testing.T) {
		doc := validDocument()
		doc.Pages[0].IsHomepage = false
		issues := Validate(doc)
		require.True(t, HasFatal(issues))
		assert.True(t, hasCode(issues, CodeNoHomepage))
	})

	t.Run("zero pages is not fatal", func(t *testing.T) {
		doc := validDocument()
		doc.Pages = nil
		assert.False(t, HasFatal(Validate(doc)))
	})
}

func TestValidate_Warnings(t *testing.T) {
	t.Run("missing alt text is a warning only", func(t *testing.T) {
		doc := validDocument()
		doc.Pages[0].Elements[0].Children[1].Attributes = nil
		doc.Assets[0].AltText = ""
		issues := Validate(doc)
		assert.False(t, HasFatal(issues))
		assert.True(t, hasCode(issues, CodeMissingAltText))
	})

	t.Run("dangling asset reference is fatal", func(t *testing.T) {
		doc := validDocument()
		doc.Pages[0].Elements[0].Children[1].AssetIDs = []string{"asset-missing"}
		issues := Validate(doc)
		assert.True(t, HasFatal(issues))
		assert.True(t, hasCode(issues, CodeBadAssetRef))
	})
}

func TestDocument_JSONRoundTrip(t *testing.T) {
	doc := validDocument()
	doc.Pages[0].Elements[0].Children[0].ResponsiveStyles = &ResponsiveStyles{
		Tablet: map[string]string{"font-size": "18px"},
		Mobile: map[string]string{"font-size": "14px"},
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded Document
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, doc.ID, decoded.ID)
	require.Len(t, decoded.Pages, 1)
	assert.Equal(t, doc.Pages[0].ElementCount(), decoded.Pages[0].ElementCount())

	heading := decoded.Pages[0].ElementByID("el-2")
	require.NotNil(t, heading)
	assert.Equal(t, "18px", heading.ResponsiveStyles.Tablet["font-size"])

	// Sibling order survives the round trip.
	assert.Equal(t, 0, decoded.Pages[0].Elements[0].Children[0].Order)
	assert.Equal(t, 1, decoded.Pages[0].Elements[0].Children[1].Order)

	assert.Empty(t, Validate(&decoded))
}

func TestDocument_Lookups(t *testing.T) {
	doc := validDocument()

	assert.NotNil(t, doc.Homepage())
	assert.Nil(t, doc.PageByID("nope"))
	assert.NotNil(t, doc.PageByID("page-home"))
	assert.NotNil(t, doc.AssetByID("asset-abc"))
	assert.Nil(t, doc.AssetByID("asset-zzz"))

	count := 0
	doc.Pages[0].WalkElements(func(el *Element) bool {
		count++
		return true
	})
	assert.Equal(t, 3, count)
	assert.Equal(t, 3, doc.Pages[0].ElementCount())
}

func hasCode(issues []Issue, code string) bool {
	for _, i := range issues {
		if i.Code == code {
			return true
		}
	}
	return false
}
