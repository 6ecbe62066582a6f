/* Copyright 2025 Leaf Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package content sanitizes page bodies before they are stored
package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aymerick/douceur/parser"
	"github.com/pkg/errors"
)

// dangerousTags are removed from the document along with their contents
var dangerousTags = []string{
	"script",
	"iframe",
	"object",
	"embed",
	"form",
	"link",
	"meta",
	"base",
}

// urlAttrs are attributes whose values are checked for unsafe schemes
var urlAttrs = []string{"href", "src", "xlink:href", "formaction"}

// allowedCSSProps is the set of CSS properties kept in style attributes
var allowedCSSProps = map[string]bool{
	"color":            true,
	"background-color": true,
	"font-size":        true,
	"font-family":      true,
	"font-weight":      true,
	"font-style":       true,
	"text-align":       true,
	"text-decoration":  true,
	"margin":           true,
	"margin-left":      true,
	"padding":          true,
	"width":            true,
	"height":           true,
}

// unsafeURL reports whether the given attribute value carries an
// executable scheme
func unsafeURL(val string) bool {
	v := strings.ToLower(strings.TrimSpace(val))
	return strings.HasPrefix(v, "javascript:") ||
		strings.HasPrefix(v, "vbscript:") ||
		strings.HasPrefix(v, "data:text/html")
}

// sanitizeStyle filters a style attribute, keeping only allowed
// declarations. It returns the filtered value and whether anything
// survived the filtering.
func sanitizeStyle(style string) (string, bool) {
	decls, err := parser.ParseDeclarations(style)
	if err != nil {
		// unparsable style attributes are dropped wholesale
		return "", false
	}

	var kept []string
	for _, d := range decls {
		prop := strings.ToLower(d.Property)
		if !allowedCSSProps[prop] {
			continue
		}
		if strings.Contains(strings.ToLower(d.Value), "url(") {
			continue
		}
		kept = append(kept, prop+": "+d.Value)
	}

	if len(kept) == 0 {
		return "", false
	}

	return strings.Join(kept, "; "), true
}

func sanitizeSelection(sel *goquery.Selection) {
	sel.Each(func(i int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			attrs := node.Attr[:0]
			for _, a := range node.Attr {
				key := strings.ToLower(a.Key)

				// event handlers
				if strings.HasPrefix(key, "on") {
					continue
				}

				if key == "style" {
					filtered, ok := sanitizeStyle(a.Val)
					if !ok {
						continue
					}
					a.Val = filtered
					attrs = append(attrs, a)
					continue
				}

				isURLAttr := false
				for _, ua := range urlAttrs {
					if key == ua {
						isURLAttr = true
						break
					}
				}
				if isURLAttr && unsafeURL(a.Val) {
					continue
				}

				attrs = append(attrs, a)
			}
			node.Attr = attrs
		}
	})
}

// SanitizeHTML strips unsafe markup from the given page body: dangerous
// elements, event handler attributes, executable URL schemes, and CSS
// declarations outside the allow list.
func SanitizeHTML(body string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "parsing body")
	}

	doc.Find(strings.Join(dangerousTags, ", ")).Remove()
	sanitizeSelection(doc.Find("*"))

	ret, err := doc.Find("body").Html()
	if err != nil {
		return "", errors.Wrap(err, "serializing body")
	}

	return ret, nil
}
