package parser

import (
	"encoding/json"
	"strings"

	"github.com/poiesic/omnidoc/core"
)

// ContentBlock mirrors one entry of a MinerU content list. Field names
// follow the tool's JSON output.
type ContentBlock struct {
	Type          string   `json:"type"`
	Text          string   `json:"text,omitempty"`
	ImgPath       string   `json:"img_path,omitempty"`
	ImgCaption    []string `json:"img_caption,omitempty"`
	ImgFootnote   []string `json:"img_footnote,omitempty"`
	TableBody     string   `json:"table_body,omitempty"`
	TableCaption  []string `json:"table_caption,omitempty"`
	TableFootnote []string `json:"table_footnote,omitempty"`
	Latex         string   `json:"latex,omitempty"`
	TextFormat    string   `json:"text_format,omitempty"`
	PageIdx       int      `json:"page_idx"`
}

// DecodeContentList parses a MinerU content list JSON document.
func DecodeContentList(data []byte) ([]ContentBlock, error) {
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// BlocksToFragments converts content blocks to fragments in source order.
// Blocks with no usable content are dropped.
func BlocksToFragments(blocks []ContentBlock) []*core.Fragment {
	fragments := make([]*core.Fragment, 0, len(blocks))
	order := 0
	for _, block := range blocks {
		fragment := blockToFragment(block)
		if fragment == nil {
			continue
		}
		fragment.Order = order
		order++
		fragments = append(fragments, fragment)
	}
	return fragments
}

func blockToFragment(block ContentBlock) *core.Fragment {
	fragmentType := core.FragmentTypeFromString(block.Type)

	fragment := &core.Fragment{
		Type:      fragmentType,
		PageIndex: block.PageIdx,
	}

	switch fragmentType {
	case core.FragmentTypeText:
		text := strings.TrimSpace(block.Text)
		if text == "" {
			return nil
		}
		fragment.Content = text

	case core.FragmentTypeImage:
		if block.ImgPath == "" && len(block.ImgCaption) == 0 {
			return nil
		}
		fragment.ImagePath = block.ImgPath
		fragment.Captions = block.ImgCaption
		fragment.Footnotes = block.ImgFootnote

	case core.FragmentTypeTable:
		if block.TableBody == "" && len(block.TableCaption) == 0 {
			return nil
		}
		fragment.Content = block.TableBody
		fragment.Captions = block.TableCaption
		fragment.Footnotes = block.TableFootnote

	case core.FragmentTypeEquation:
		// Equations carry LaTeX either in the latex field or the text body
		content := block.Latex
		if content == "" {
			content = block.Text
		}
		if strings.TrimSpace(content) == "" {
			return nil
		}
		fragment.Content = content

	default:
		text := strings.TrimSpace(block.Text)
		if text == "" {
			return nil
		}
		fragment.Content = text
	}

	return fragment
}
