package pdfchromium

import (
	"encoding/json"
	"fmt"
)

const (
	accessibleScript = `(() => typeof window !== "undefined" && !!document && !!document.documentElement)()`

	inlineWidthScript = `document.documentElement.style.width`

	scrollOffsetScript = `({x: window.scrollX, y: window.scrollY})`

	serializeScript = `(() => {
  const doctype = document.doctype ? "<!DOCTYPE " + document.doctype.name + ">" : "";
  return doctype + document.documentElement.outerHTML;
})()`

	// vectorSnapshotScript must visit svg and path elements in document order.
	vectorSnapshotScript = `(() => Array.from(document.querySelectorAll("svg")).map((svg) => {
  const box = svg.getBoundingClientRect();
  const style = window.getComputedStyle(svg);
  return {
    width: box.width,
    height: box.height,
    fill: style.fill,
    stroke: style.stroke,
    strokeWidth: style.strokeWidth,
    paths: Array.from(svg.querySelectorAll("path")).map((path) => {
      const ps = window.getComputedStyle(path);
      return {fill: ps.fill, stroke: ps.stroke, strokeWidth: ps.strokeWidth};
    }),
  };
}))()`

	settleScript = `(async () => {
  if (document.fonts && document.fonts.ready) {
    await document.fonts.ready;
  }
  await Promise.all(Array.from(document.images)
    .filter((img) => !img.complete)
    .map((img) => new Promise((resolve) => {
      img.addEventListener("load", resolve, {once: true});
      img.addEventListener("error", resolve, {once: true});
    })));
  return true;
})()`

	contentHeightScript = `(() => {
  const root = document.documentElement;
  const body = document.body;
  return Math.ceil(Math.max(
    root.scrollHeight, root.getBoundingClientRect().height,
    body ? body.scrollHeight : 0, body ? body.getBoundingClientRect().height : 0
  ));
})()`
)

type scrollPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func setInlineWidthScript(value string) string {
	return fmt.Sprintf(`(() => { document.documentElement.style.width = %s; return true; })()`, jsString(value))
}

func scrollToScript(x, y float64) string {
	return fmt.Sprintf(`(() => { window.scrollTo(%s, %s); return true; })()`, jsNumber(x), jsNumber(y))
}

func jsString(value string) string {
	encoded, _ := json.Marshal(value)
	return string(encoded)
}

func jsNumber(value float64) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "0"
	}
	return string(encoded)
}
