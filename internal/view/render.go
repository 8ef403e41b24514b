package view

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed web/static/* web/templates/*
var embeddedFS embed.FS

const (
	templateBaseName           = "base"
	templateIndexFile          = "web/templates/index.tmpl"
	templateIndexName          = "index.tmpl"
	embeddedBaseCSSPath        = "web/static/base.css"
	embeddedAppJSPath          = "web/static/app.js"
	pageTitleText              = "Following Triage"
	embedReadErrorFormat       = "embed read %s: %w"
	rowsJSONErrorFormat        = "encode rows: %w"
	templateParseErrorFormat   = "template parse: %w"
	templateExecuteErrorFormat = "template execute: %w"
)

func embeddedText(path string) (string, error) {
	content, readErr := fs.ReadFile(embeddedFS, path)
	if readErr != nil {
		return "", fmt.Errorf(embedReadErrorFormat, path, readErr)
	}
	return string(content), nil
}

// StaticAssets exposes the embedded static asset filesystem.
func StaticAssets() (fs.FS, error) {
	return fs.Sub(embeddedFS, "web/static")
}

type triagePageViewModel struct {
	Title    string
	Rows     []Row
	RowsJSON template.JS
	CSS      template.CSS
	JS       template.JS
}

// RenderTriagePage assembles the triage HTML using the embedded assets and
// templates. The row list is rendered server-side and also embedded as JSON
// for the client script.
func RenderTriagePage(rows []Row) (string, error) {
	cssText, cssErr := embeddedText(embeddedBaseCSSPath)
	if cssErr != nil {
		return "", cssErr
	}
	jsText, jsErr := embeddedText(embeddedAppJSPath)
	if jsErr != nil {
		return "", jsErr
	}
	rowsJSON, encodeErr := json.Marshal(rows)
	if encodeErr != nil {
		return "", fmt.Errorf(rowsJSONErrorFormat, encodeErr)
	}

	viewModel := triagePageViewModel{
		Title:    pageTitleText,
		Rows:     rows,
		RowsJSON: template.JS(rowsJSON),
		CSS:      template.CSS(cssText),
		JS:       template.JS(jsText),
	}

	parsedTemplate, parseErr := template.New(templateBaseName).ParseFS(embeddedFS, templateIndexFile)
	if parseErr != nil {
		return "", fmt.Errorf(templateParseErrorFormat, parseErr)
	}
	var buffer bytes.Buffer
	if executeErr := parsedTemplate.ExecuteTemplate(&buffer, templateIndexName, viewModel); executeErr != nil {
		return "", fmt.Errorf(templateExecuteErrorFormat, executeErr)
	}
	return buffer.String(), nil
}
