package download

import (
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/apestel/hardwire/internal/storage"
	"github.com/dustin/go-humanize"
)

// landingPageTemplate renders the public share page: a plain file
// listing with direct download links. No JS, no styling framework —
// this surface has no authenticated session to protect, so it stays
// minimal and auditable.
var landingPageTemplate = template.Must(template.New("share").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Hardwire share {{.ShareID}}</title>
</head>
<body>
<h1>Shared files</h1>
<ul>
{{range .Entries}}
<li><a href="{{.URL}}">{{.Name}}</a> ({{.SizeHuman}})</li>
{{end}}
</ul>
</body>
</html>
`))

type landingEntry struct {
	Name      string
	URL       string
	SizeHuman string
}

type landingPageData struct {
	ShareID string
	Entries []landingEntry
}

// RenderLandingPage writes the share listing page for resolved.
func RenderLandingPage(w http.ResponseWriter, shareID string, resolved *storage.ResolvedShare) {
	data := landingPageData{ShareID: shareID}
	for _, f := range resolved.Files {
		data.Entries = append(data.Entries, landingEntry{
			Name:      filepath.Base(f.Path),
			URL:       "/s/" + shareID + "/" + FileRef(shareID, f.ID),
			SizeHuman: humanize.Bytes(uint64(f.Size)),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = landingPageTemplate.Execute(w, data)
}

