package docxrender

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWordDrawing   = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	relTypeImage    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

	emptyRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`
)

// Inline signature images in placeholder mode have a fixed extent.
const (
	InlineWidthEMU  = 1440000
	InlineHeightEMU = 720000
)

var (
	reDocumentTag = regexp.MustCompile(`<w:document\b[^>]*>`)
	reBodyTag     = regexp.MustCompile(`<w:body\b[^>]*>`)
	reRelID       = regexp.MustCompile(`Id="rId(\d+)"`)
	reDocPrID     = regexp.MustCompile(`<wp:docPr\b[^>]*\bid="(\d+)"`)
)

func xmlEscape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}

// ensureNamespaces declares the relationship and drawing prefixes on the
// root element when the document lacks them.
func ensureNamespaces(doc string) string {
	loc := reDocumentTag.FindStringIndex(doc)
	if loc == nil {
		return doc
	}
	tag := doc[loc[0]:loc[1]]
	var extra string
	if !strings.Contains(tag, "xmlns:r=") {
		extra += ` xmlns:r="` + nsRelationships + `"`
	}
	if !strings.Contains(tag, "xmlns:wp=") {
		extra += ` xmlns:wp="` + nsWordDrawing + `"`
	}
	if extra == "" {
		return doc
	}
	end := loc[1] - 1
	if strings.HasSuffix(tag, "/>") {
		end--
	}
	return doc[:end] + extra + doc[end:]
}

// maxID returns the largest id captured by re in s, or zero.
func maxID(re *regexp.Regexp, s string) int {
	n := 0
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		if v, err := strconv.Atoi(m[1]); err == nil && v > n {
			n = v
		}
	}
	return n
}

func addRelationships(rels string, entries []string) string {
	if len(entries) == 0 {
		return rels
	}
	i := strings.LastIndex(rels, "</Relationships>")
	if i < 0 {
		return rels
	}
	return rels[:i] + "\n  " + strings.Join(entries, "\n  ") + "\n" + rels[i:]
}

func imageRelationship(relID int, target string) string {
	return fmt.Sprintf(`<Relationship Id="rId%d" Type="%s" Target="%s"/>`, relID, relTypeImage, target)
}

// ensureContentTypes adds Default entries for the given extensions.
func ensureContentTypes(ct string, types map[string]string) string {
	var add []string
	for _, ext := range []string{"png", "jpg", "jpeg"} {
		mime, ok := types[ext]
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(ct), `extension="`+ext+`"`) {
			continue
		}
		add = append(add, fmt.Sprintf(`<Default Extension="%s" ContentType="%s"/>`, ext, mime))
	}
	if len(add) == 0 {
		return ct
	}
	i := strings.LastIndex(ct, "</Types>")
	if i < 0 {
		return ct
	}
	return ct[:i] + strings.Join(add, "") + ct[i:]
}

// insertAfterBody places content right after the opening body tag.
func insertAfterBody(doc, content string) (string, bool) {
	loc := reBodyTag.FindStringIndex(doc)
	if loc == nil {
		return doc, false
	}
	return doc[:loc[1]] + content + doc[loc[1]:], true
}

func inlineImageRun(docPrID, relID int) string {
	return fmt.Sprintf(`<w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%[3]d" cy="%[4]d"/><wp:effectExtent l="0" t="0" r="0" b="0"/>`+
		`<wp:docPr id="%[1]d" name="Signature %[1]d"/><wp:cNvGraphicFramePr/>`+
		`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
		`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:nvPicPr><pic:cNvPr id="0" name=""/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="rId%[2]d"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[3]d" cy="%[4]d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic>`+
		`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`,
		docPrID, relID, InlineWidthEMU, InlineHeightEMU)
}

// anchor is the page-relative frame shared by text boxes and pictures.
type anchor struct {
	docPrID       int
	name          string
	x, y          int64
	width, height int64
}

func (a anchor) open() string {
	return fmt.Sprintf(`<w:p><w:r><w:drawing><wp:anchor distT="0" distB="0" distL="0" distR="0" simplePos="0" relativeHeight="251658240" behindDoc="0" locked="1" layoutInCell="1" allowOverlap="1">`+
		`<wp:simplePos x="0" y="0"/>`+
		`<wp:positionH relativeFrom="page"><wp:posOffset>%d</wp:posOffset></wp:positionH>`+
		`<wp:positionV relativeFrom="page"><wp:posOffset>%d</wp:posOffset></wp:positionV>`+
		`<wp:extent cx="%d" cy="%d"/><wp:effectExtent l="0" t="0" r="0" b="0"/><wp:wrapNone/>`+
		`<wp:docPr id="%d" name="%s"/><wp:cNvGraphicFramePr/>`+
		`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`,
		a.x, a.y, a.width, a.height, a.docPrID, xmlEscape(a.name))
}

const anchorClose = `</a:graphic></wp:anchor></w:drawing></w:r></w:p>`

// textBox is an anchored, borderless text box. Text is 12pt in colour hex.
func (a anchor) textBox(text, hex string) string {
	return a.open() +
		`<a:graphicData uri="http://schemas.microsoft.com/office/word/2010/wordprocessingShape">` +
		`<wps:wsp xmlns:wps="http://schemas.microsoft.com/office/word/2010/wordprocessingShape"><wps:cNvSpPr/>` +
		fmt.Sprintf(`<wps:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`, a.width, a.height) +
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/>` +
		`<a:ln w="0"><a:solidFill><a:srgbClr val="FFFFFF"/></a:solidFill></a:ln></wps:spPr>` +
		`<wps:txbx><w:txbxContent><w:p><w:pPr><w:spacing w:before="0" w:after="0" w:line="240" w:lineRule="auto"/><w:jc w:val="left"/></w:pPr>` +
		fmt.Sprintf(`<w:r><w:rPr><w:color w:val="%s"/><w:sz w:val="24"/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r>`, hex, xmlEscape(text)) +
		`</w:p></w:txbxContent></wps:txbx>` +
		`<wps:bodyPr vertOverflow="clip" horzOverflow="clip" wrap="none" lIns="0" tIns="0" rIns="0" bIns="0" anchor="t" anchorCtr="0"/>` +
		`</wps:wsp></a:graphicData>` + anchorClose
}

// picture is an anchored image stretched over the frame.
func (a anchor) picture(relID int) string {
	return a.open() +
		`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
		`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
		`<pic:nvPicPr><pic:cNvPr id="0" name=""/><pic:cNvPicPr/></pic:nvPicPr>` +
		fmt.Sprintf(`<pic:blipFill><a:blip r:embed="rId%d"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`, relID) +
		fmt.Sprintf(`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`, a.width, a.height) +
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic></a:graphicData>` + anchorClose
}

// placeholderPattern matches a text run containing token, ignoring case.
func placeholderPattern(token string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(<w:t(?:\s[^>]*)?>)([^<]*` + regexp.QuoteMeta(xmlEscape(token)) + `[^<]*)(</w:t>)`)
}

// replaceToken substitutes every case-insensitive occurrence of token in the
// runs of doc with the escaped text, and reports the number of runs changed.
func replaceToken(doc, token, text string) (string, int) {
	re := placeholderPattern(token)
	inner := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(xmlEscape(token)))
	escaped := xmlEscape(text)
	n := 0
	out := re.ReplaceAllStringFunc(doc, func(m string) string {
		n++
		sub := re.FindStringSubmatch(m)
		return sub[1] + inner.ReplaceAllLiteralString(sub[2], escaped) + sub[3]
	})
	return out, n
}

// spliceRun replaces the token inside each matching run with a drawing from
// run, closing and reopening the surrounding w:r so the drawing sits between
// text runs. run is called once per match. The reopened run keeps the
// original run properties.
func spliceRun(doc, token string, run func() string) (string, int) {
	re := placeholderPattern(token)
	inner := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(xmlEscape(token)))
	matches := re.FindAllStringSubmatchIndex(doc, -1)
	if len(matches) == 0 {
		return doc, 0
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		open, content, closeTag := doc[m[2]:m[3]], doc[m[4]:m[5]], doc[m[6]:m[7]]
		props := runProperties(doc[:m[0]])
		loc := inner.FindStringIndex(content)
		before, after := content[:loc[0]], content[loc[1]:]
		b.WriteString(doc[last:m[0]])
		if strings.TrimSpace(before) == "" && strings.TrimSpace(after) == "" {
			b.WriteString("</w:r>" + run() + "<w:r>" + props + "<w:t></w:t>")
		} else {
			b.WriteString(open + before + closeTag + "</w:r>" + run() + "<w:r>" + props + open + after + closeTag)
		}
		last = m[1]
	}
	b.WriteString(doc[last:])
	return b.String(), len(matches)
}

// runProperties returns the w:rPr element of the run still open at the end
// of prefix, or "".
func runProperties(prefix string) string {
	start := max(strings.LastIndex(prefix, "<w:r>"), strings.LastIndex(prefix, "<w:r "))
	if start < 0 {
		return ""
	}
	tail := prefix[start:]
	i := strings.Index(tail, "<w:rPr>")
	if i < 0 {
		return ""
	}
	j := strings.Index(tail[i:], "</w:rPr>")
	if j < 0 {
		return ""
	}
	return tail[i : i+j+len("</w:rPr>")]
}
