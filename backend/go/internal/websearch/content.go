package websearch

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// 抓取正文前需要移除的元素
var droppedTags = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"footer": true,
	"header": true,
	"aside":  true,
}

// 正文候选，按顺序匹配第一个文本长度超过 100 的元素
var mainSelectors = []selector{
	{tag: "main"},
	{tag: "article"},
	{class: "content"},
	{id: "content"},
	{class: "post"},
	{class: "entry"},
}

var whitespace = regexp.MustCompile(`\s+`)

type selector struct {
	tag   string
	class string
	id    string
}

func (s selector) match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" {
		return n.Data == s.tag
	}
	for _, a := range n.Attr {
		if s.id != "" && a.Key == "id" && a.Val == s.id {
			return true
		}
		if s.class != "" && a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == s.class {
					return true
				}
			}
		}
	}
	return false
}

// ExtractMainContent 解析 HTML，去掉导航等元素，选出正文节点并转为压缩空白后的文本，
// 最多保留 limit 个字符。
func ExtractMainContent(r io.Reader, limit int) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	prune(doc)

	node := pickMain(doc)
	if node == nil {
		return "", nil
	}

	md, err := htmltomarkdown.ConvertNode(node)
	if err != nil {
		// 转换失败时退回纯文本
		md = []byte(textOf(node))
	}
	content := strings.TrimSpace(whitespace.ReplaceAllString(string(bytes.TrimSpace(md)), " "))
	return truncate(content, limit), nil
}

func prune(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && droppedTags[c.Data] {
			n.RemoveChild(c)
		} else {
			prune(c)
		}
		c = next
	}
}

func pickMain(doc *html.Node) *html.Node {
	for _, sel := range mainSelectors {
		if n := find(doc, sel.match); n != nil && len(strings.TrimSpace(textOf(n))) > 100 {
			return n
		}
	}
	return find(doc, func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == "body" })
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
