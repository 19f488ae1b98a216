// Package xmlpath evaluates XPath expressions over XML documents for extraction.
package xmlpath

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gcbaptista/go-corpus-engine/services"
)

// DefaultCacheSize is the number of compiled expressions kept by default
const DefaultCacheSize = 1024

// Evaluator implements services.NodeEvaluator with antchfx/xmlquery.
// Compiled expressions are cached per namespace context. A compiled expression keeps iteration
// state, so each cache entry is a pool and an expression is used by one goroutine at a time.
type Evaluator struct {
	cache *lru.Cache[string, *sync.Pool]
}

var _ services.NodeEvaluator = (*Evaluator)(nil)

// NewEvaluator creates an evaluator caching up to cacheSize compiled expressions
func NewEvaluator(cacheSize int) (*Evaluator, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *sync.Pool](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create expression cache: %w", err)
	}
	return &Evaluator{cache: cache}, nil
}

// Parse reads an XML document
func (e *Evaluator) Parse(r io.Reader) (services.Node, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	return doc, nil
}

// Check compiles path and caches it for later evaluations
func (e *Evaluator) Check(path string, namespaces map[string]string) error {
	_, err := e.pool(path, namespaces)
	return err
}

func (e *Evaluator) pool(path string, namespaces map[string]string) (*sync.Pool, error) {
	key := cacheKey(path, namespaces)
	if pool, ok := e.cache.Get(key); ok {
		return pool, nil
	}
	expr, err := compile(path, namespaces)
	if err != nil {
		return nil, fmt.Errorf("invalid path '%s': %w", path, err)
	}
	pool := &sync.Pool{New: func() any {
		// Already known to compile
		expr, _ := compile(path, namespaces)
		return expr
	}}
	pool.Put(expr)
	e.cache.Add(key, pool)
	return pool, nil
}

// evaluate runs path against node with an expression borrowed from the pool
func (e *Evaluator) evaluate(node *xmlquery.Node, path string, namespaces map[string]string, fn func(result any)) error {
	pool, err := e.pool(path, namespaces)
	if err != nil {
		return err
	}
	expr := pool.Get().(*xpath.Expr)
	defer pool.Put(expr)
	fn(expr.Evaluate(xmlquery.CreateXPathNavigator(node)))
	return nil
}

func compile(path string, namespaces map[string]string) (*xpath.Expr, error) {
	if len(namespaces) > 0 {
		return xpath.CompileWithNS(path, namespaces)
	}
	return xpath.Compile(path)
}

// Select returns the nodes matched by path
func (e *Evaluator) Select(ctx services.Node, path string, namespaces map[string]string) ([]services.Node, error) {
	node, err := asNode(ctx)
	if err != nil {
		return nil, err
	}
	var (
		nodes    []services.Node
		selected = true
	)
	err = e.evaluate(node, path, namespaces, func(result any) {
		iter, ok := result.(*xpath.NodeIterator)
		if !ok {
			selected = false
			return
		}
		for iter.MoveNext() {
			if nav, ok := iter.Current().(*xmlquery.NodeNavigator); ok {
				nodes = append(nodes, nav.Current())
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if !selected {
		return nil, fmt.Errorf("path '%s' does not select nodes", path)
	}
	return nodes, nil
}

// EvaluateStrings returns the string values of the path result
func (e *Evaluator) EvaluateStrings(ctx services.Node, path string, namespaces map[string]string) ([]string, error) {
	node, err := asNode(ctx)
	if err != nil {
		return nil, err
	}
	var (
		values  []string
		typeErr error
	)
	err = e.evaluate(node, path, namespaces, func(result any) {
		switch result := result.(type) {
		case *xpath.NodeIterator:
			for result.MoveNext() {
				values = append(values, result.Current().Value())
			}
		case string:
			values = []string{result}
		case float64:
			values = []string{formatNumber(result)}
		case bool:
			values = []string{strconv.FormatBool(result)}
		default:
			typeErr = fmt.Errorf("path '%s' produced an unsupported result type %T", path, result)
		}
	})
	if err != nil {
		return nil, err
	}
	if typeErr != nil {
		return nil, typeErr
	}
	return values, nil
}

// Text returns the text content of a node
func (e *Evaluator) Text(n services.Node) string {
	node, err := asNode(n)
	if err != nil {
		return ""
	}
	return node.InnerText()
}

// Markup serializes a node including its own tag
func (e *Evaluator) Markup(n services.Node) string {
	node, err := asNode(n)
	if err != nil {
		return ""
	}
	return node.OutputXML(true)
}

func asNode(n services.Node) (*xmlquery.Node, error) {
	node, ok := n.(*xmlquery.Node)
	if !ok || node == nil {
		return nil, fmt.Errorf("unsupported node type %T", n)
	}
	return node, nil
}

// formatNumber prints integral results without a fraction: count(..) gives "3", not "3.000000"
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func cacheKey(path string, namespaces map[string]string) string {
	if len(namespaces) == 0 {
		return path
	}
	prefixes := make([]string, 0, len(namespaces))
	for p := range namespaces {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	var b strings.Builder
	for _, p := range prefixes {
		b.WriteString(p)
		b.WriteByte('=')
		b.WriteString(namespaces[p])
		b.WriteByte(' ')
	}
	b.WriteString("| ")
	b.WriteString(path)
	return b.String()
}
