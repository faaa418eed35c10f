package deck

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nrdvana/slidelink/internal/models"
)

const (
	DefaultRootClass = "slides"
	slideClass       = "slide"
	autoStepClass    = "auto-step"
	notesClass       = "notes"
	stepAttr         = "data-step"
)

// ErrNoRoot is returned when the document has no presentation container
var ErrNoRoot = errors.New("presentation root not found")

// ErrNoSlides is returned when the presentation container holds no slides
var ErrNoSlides = errors.New("presentation has no slides")

// Options controls how markup is indexed
type Options struct {
	// RootClass names the class of the presentation container
	RootClass string
}

// LoadFile reads and indexes the deck at path
func LoadFile(path string, opts Options) (*models.Presentation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open deck: %w", err)
	}
	defer f.Close()

	pres, err := Load(f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load deck %s: %w", path, err)
	}
	return pres, nil
}

// Load parses deck markup and builds the per-slide step index
func Load(r io.Reader, opts Options) (*models.Presentation, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	rootClass := opts.RootClass
	if rootClass == "" {
		rootClass = DefaultRootClass
	}
	root := findFirst(doc, func(n *html.Node) bool { return hasClass(n, rootClass) })
	if root == nil {
		return nil, fmt.Errorf("%w: no element with class %q", ErrNoRoot, rootClass)
	}

	var slideNodes []*html.Node
	collectSlides(root, &slideNodes)
	if len(slideNodes) == 0 {
		return nil, ErrNoSlides
	}

	pres := &models.Presentation{Slides: make([]models.Slide, 0, len(slideNodes))}
	nextID := 1
	for i, node := range slideNodes {
		slide, err := indexSlide(node, i+1, &nextID)
		if err != nil {
			return nil, err
		}
		pres.Slides = append(pres.Slides, slide)
	}
	return pres, nil
}

func collectSlides(n *html.Node, out *[]*html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasClass(c, slideClass) {
			*out = append(*out, c)
			continue
		}
		collectSlides(c, out)
	}
}

func indexSlide(node *html.Node, index int, nextID *int) (models.Slide, error) {
	slide := models.Slide{Index: index}
	specs := autoNumber(node)

	var body []string
	var walk func(n *html.Node, inStep bool) error
	walk = func(n *html.Node, inStep bool) error {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				if !inStep {
					body = append(body, c.Data)
				}
				continue
			}
			if c.Type != html.ElementNode {
				continue
			}
			if hasClass(c, notesClass) {
				slide.Notes = joinNonEmpty(slide.Notes, collapse(textOf(c)))
				continue
			}
			raw := specs[c]
			if raw == "" {
				if slide.Title == "" && !inStep && isHeading(c) {
					slide.Title = collapse(textOf(c))
					continue
				}
				if err := walk(c, inStep); err != nil {
					return err
				}
				continue
			}
			step, err := ParseStepSpec(raw)
			if err != nil {
				var se *SpecError
				if errors.As(err, &se) {
					se.Slide = index
				}
				return err
			}
			step.ID = *nextID
			*nextID++
			step.Text = collapse(ownText(c, specs))
			slide.Steps = append(slide.Steps, step)
			if err := walk(c, true); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(node, false); err != nil {
		return models.Slide{}, err
	}

	slide.MaxStep = MaxStep(slide.Steps)
	if slide.Title == "" {
		slide.Title = "Slide " + strconv.Itoa(index)
	}
	slide.Body = collapse(strings.Join(body, " "))
	return slide, nil
}

// autoNumber resolves the effective step spec of every element in the slide.
// auto-step containers number their direct children from a per-slide counter
// that a bare data-step on the container restarts. Containers are visited in
// document order, so a nested container sees the number its parent gave it.
func autoNumber(slide *html.Node) map[*html.Node]string {
	specs := make(map[*html.Node]string)
	counter := 1
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if _, assigned := specs[c]; !assigned {
				if raw, ok := attr(c, stepAttr); ok {
					specs[c] = raw
				}
			}
			if hasClass(c, autoStepClass) {
				if start, ok := singleStepNum(specs[c]); ok {
					counter = start
				}
				for child := c.FirstChild; child != nil; child = child.NextSibling {
					if child.Type == html.ElementNode {
						specs[child] = strconv.Itoa(counter)
						counter++
					}
				}
			}
			walk(c)
		}
	}
	walk(slide)
	return specs
}

// ownText returns the text of n, leaving out nested steps which carry their own text.
func ownText(n *html.Node, specs map[*html.Node]string) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				b.WriteString(c.Data)
				b.WriteByte(' ')
			case c.Type == html.ElementNode:
				if specs[c] != "" || hasClass(c, notesClass) {
					continue
				}
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
				b.WriteByte(' ')
			}
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	raw, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(raw) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func isHeading(n *html.Node) bool {
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3:
		return true
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}
