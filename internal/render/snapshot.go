package render

// domSnapshotJS serializes the visible DOM with computed styles. Runs in
// the page context; the walk is depth-capped because authoring platforms
// occasionally emit pathologically deep wrapper chains.
const domSnapshotJS = `
(() => {
  const SKIP = ['SCRIPT', 'STYLE', 'NOSCRIPT', 'META', 'LINK', 'TEMPLATE'];
  const STYLE_PROPS = [
    'color', 'background-color', 'background-image', 'font-family',
    'font-size', 'font-weight', 'margin', 'padding', 'border', 'width',
    'height', 'display', 'position', 'top', 'right', 'bottom', 'left',
    'z-index', 'opacity', 'text-align', 'line-height', 'letter-spacing',
    'text-decoration', 'text-transform'
  ];
  function extract(el, depth) {
    if (depth > 24) return null;
    if (SKIP.includes(el.tagName)) return null;
    const cs = window.getComputedStyle(el);
    if (cs.display === 'none' || cs.visibility === 'hidden') return null;
    const node = {
      tag: el.tagName.toLowerCase(),
      classes: Array.from(el.classList),
      attributes: {},
      content: '',
      styles: {},
      children: []
    };
    for (const name of ['id', 'href', 'src', 'alt', 'title', 'placeholder', 'required', 'type']) {
      const v = el.getAttribute(name);
      if (v !== null) node.attributes[name] = v;
    }
    for (const attr of el.attributes) {
      if (attr.name.startsWith('data-')) node.attributes[attr.name] = attr.value;
    }
    for (const prop of STYLE_PROPS) {
      const v = cs.getPropertyValue(prop);
      if (v && v !== 'none' && v !== 'auto' && v !== 'normal') node.styles[prop] = v;
    }
    if (el.childNodes.length === 1 && el.childNodes[0].nodeType === Node.TEXT_NODE) {
      node.content = el.textContent.trim();
    }
    for (const child of el.children) {
      const c = extract(child, depth + 1);
      if (c) node.children.push(c);
    }
    return node;
  }
  return extract(document.body, 0);
})()`

// seoSnapshotJS captures head metadata.
const seoSnapshotJS = `
(() => {
  const meta = {};
  for (const m of document.querySelectorAll('meta')) {
    const name = m.getAttribute('name') || m.getAttribute('property');
    const content = m.getAttribute('content');
    if (name && content) meta[name] = content;
  }
  const structured = [];
  for (const s of document.querySelectorAll('script[type="application/ld+json"]')) {
    try { structured.push(JSON.parse(s.textContent)); } catch (e) {}
  }
  const canonical = document.querySelector('link[rel="canonical"]');
  const favicon = document.querySelector('link[rel*="icon"]');
  return {
    title: document.title,
    meta: meta,
    canonical: canonical ? canonical.href : '',
    language: document.documentElement.lang || 'en',
    favicon: favicon ? favicon.href : '',
    structured_data: structured
  };
})()`

// linksJS collects every anchor href on the page.
const linksJS = `Array.from(document.querySelectorAll('a[href]')).map(a => a.href)`

// themeSnapshotJS samples the colors and font families in use.
const themeSnapshotJS = `
(() => {
  const colors = new Set();
  const fonts = new Set();
  for (const el of document.querySelectorAll('*')) {
    const cs = window.getComputedStyle(el);
    const c = cs.color;
    const bg = cs.backgroundColor;
    if (c && c !== 'rgba(0, 0, 0, 0)') colors.add(c);
    if (bg && bg !== 'rgba(0, 0, 0, 0)') colors.add(bg);
    if (cs.fontFamily) fonts.add(cs.fontFamily);
    if (colors.size > 40 && fonts.size > 10) break;
  }
  return { colors: Array.from(colors), fonts: Array.from(fonts) };
})()`
