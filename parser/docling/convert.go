package docling

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/poiesic/omnidoc/core"
)

// Docling's JSON document model: a body of $ref children pointing into
// per-kind arrays (texts, pictures, tables, groups).
type doclingDocument struct {
	Body     doclingNode    `json:"body"`
	Texts    []doclingText  `json:"texts"`
	Pictures []doclingImage `json:"pictures"`
	Tables   []doclingTable `json:"tables"`
	Groups   []doclingNode  `json:"groups"`
}

type doclingNode struct {
	Children []doclingRef `json:"children"`
}

type doclingRef struct {
	Ref string `json:"$ref"`
}

type doclingText struct {
	Label string `json:"label"`
	Orig  string `json:"orig"`
}

type doclingImage struct {
	Image struct {
		URI string `json:"uri"`
	} `json:"image"`
	Caption  string `json:"caption"`
	Footnote string `json:"footnote"`
}

type doclingTable struct {
	Caption  string          `json:"caption"`
	Footnote string          `json:"footnote"`
	Data     json.RawMessage `json:"data"`
}

// convertDocument flattens a docling JSON document into fragments.
// Embedded images are decoded and written under outputDir/images.
func convertDocument(data []byte, outputDir string) ([]*core.Fragment, error) {
	var doc doclingDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding docling document: %w", err)
	}

	var fragments []*core.Fragment
	for _, child := range doc.Body.Children {
		kind, index, err := resolveRef(child.Ref)
		if err != nil {
			continue
		}

		if kind == "groups" {
			if index >= len(doc.Groups) {
				continue
			}
			for _, member := range doc.Groups[index].Children {
				memberKind, memberIndex, err := resolveRef(member.Ref)
				if err != nil || memberKind == "groups" {
					continue
				}
				if fragment := doc.blockToFragment(memberKind, memberIndex, outputDir); fragment != nil {
					fragments = append(fragments, fragment)
				}
			}
			continue
		}

		if fragment := doc.blockToFragment(kind, index, outputDir); fragment != nil {
			fragments = append(fragments, fragment)
		}
	}

	for i, fragment := range fragments {
		fragment.Order = i
	}
	return fragments, nil
}

// resolveRef splits a "#/texts/0" style reference into kind and index.
func resolveRef(ref string) (string, int, error) {
	parts := strings.Split(ref, "/")
	if len(parts) != 3 || parts[0] != "#" {
		return "", 0, fmt.Errorf("unexpected ref format: %q", ref)
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, err
	}
	return parts[1], index, nil
}

func (d *doclingDocument) blockToFragment(kind string, index int, outputDir string) *core.Fragment {
	switch kind {
	case "texts":
		if index >= len(d.Texts) {
			return nil
		}
		block := d.Texts[index]
		text := strings.TrimSpace(block.Orig)
		if text == "" {
			return nil
		}
		if block.Label == "formula" {
			return &core.Fragment{Type: core.FragmentTypeEquation, Content: text}
		}
		return &core.Fragment{Type: core.FragmentTypeText, Content: text}

	case "pictures":
		if index >= len(d.Pictures) {
			return nil
		}
		block := d.Pictures[index]
		imagePath, err := writeEmbeddedImage(block.Image.URI, outputDir, index)
		if err != nil {
			// Fall back to a text note so the caption survives
			if block.Caption != "" {
				return &core.Fragment{
					Type:    core.FragmentTypeText,
					Content: "[Image unavailable: " + block.Caption + "]",
				}
			}
			return nil
		}
		fragment := &core.Fragment{Type: core.FragmentTypeImage, ImagePath: imagePath}
		if block.Caption != "" {
			fragment.Captions = []string{block.Caption}
		}
		if block.Footnote != "" {
			fragment.Footnotes = []string{block.Footnote}
		}
		return fragment

	case "tables":
		if index >= len(d.Tables) {
			return nil
		}
		block := d.Tables[index]
		fragment := &core.Fragment{Type: core.FragmentTypeTable, Content: string(block.Data)}
		if block.Caption != "" {
			fragment.Captions = []string{block.Caption}
		}
		if block.Footnote != "" {
			fragment.Footnotes = []string{block.Footnote}
		}
		if fragment.Content == "" && len(fragment.Captions) == 0 {
			return nil
		}
		return fragment
	}
	return nil
}

// writeEmbeddedImage decodes a base64 data URI to outputDir/images and
// returns the relative path.
func writeEmbeddedImage(uri, outputDir string, index int) (string, error) {
	_, encoded, found := strings.Cut(uri, ",")
	if !found {
		return "", fmt.Errorf("no data in image uri")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	imageDir := filepath.Join(outputDir, "images")
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return "", err
	}

	relPath := filepath.Join("images", fmt.Sprintf("image_%d.png", index))
	if err := os.WriteFile(filepath.Join(outputDir, relPath), raw, 0644); err != nil {
		return "", err
	}
	return relPath, nil
}
