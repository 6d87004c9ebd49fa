package calendar

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	apperrors "github.com/yogacal/yogacal/internal/shared/errors"
)

// DownloadMarker 是页面上下载链接的固定锚文本。匹配采用子串包含而非全等，
// 与页面历史版本中锚文本携带额外空白/装饰的情况保持兼容。
const DownloadMarker = "Click here to Download the Free PDF"

// extractDownloadLink 在页面正文中定位唯一的下载链接。
// 零个匹配返回 NOT_FOUND，多于一个返回 AMBIGUOUS_RESULT。
func extractDownloadLink(body io.Reader, marker string) (string, error) {
	node, err := html.Parse(body)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrorCodeConnectivity, err, "无法读取页面 HTML")
	}

	var matches []string
	collectAnchors(node, marker, &matches)

	switch len(matches) {
	case 0:
		return "", apperrors.New(apperrors.ErrorCodeNotFound, "未找到匹配锚文本 '%s' 的下载链接", marker)
	case 1:
		return matches[0], nil
	default:
		return "", apperrors.New(apperrors.ErrorCodeAmbiguousResult, "锚文本 '%s' 匹配到 %d 个下载链接", marker, len(matches))
	}
}

func collectAnchors(n *html.Node, marker string, matches *[]string) {
	if n.Type == html.ElementNode && n.Data == "a" {
		if strings.Contains(anchorText(n), marker) {
			if href, ok := anchorHref(n); ok {
				*matches = append(*matches, href)
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectAnchors(child, marker, matches)
	}
}

// anchorText 拼接锚元素下所有文本节点，得到用户可见的锚文本。
func anchorText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}

func anchorHref(n *html.Node) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			return attr.Val, true
		}
	}
	return "", false
}
