// Package nfo renders the Kodi/Jellyfin movie descriptor written beside each
// organized video and reads yt-dlp info.json sidecars.
package nfo

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"vidshelf/internal/metadata"
)

// Extension is the descriptor file suffix.
const Extension = ".nfo"

type movie struct {
	XMLName   xml.Name `xml:"movie"`
	Title     string   `xml:"title"`
	Plot      string   `xml:"plot"`
	Studio    string   `xml:"studio"`
	Premiered string   `xml:"premiered"`
}

// Render returns the UTF-8 descriptor for meta.
func Render(meta metadata.Metadata) ([]byte, error) {
	doc := movie{
		Title:     meta.Title,
		Plot:      meta.Description,
		Studio:    meta.Channel,
		Premiered: meta.PublishedDate(),
	}
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8" standalone="yes"?>` + "\n")
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode descriptor: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Parse reads a descriptor produced by Render.
func Parse(data []byte) (metadata.Metadata, error) {
	var doc movie
	if err := xml.Unmarshal(data, &doc); err != nil {
		return metadata.Metadata{}, fmt.Errorf("decode descriptor: %w", err)
	}
	return metadata.Metadata{
		Title:       doc.Title,
		Description: doc.Plot,
		Channel:     doc.Studio,
		PublishedAt: doc.Premiered,
	}, nil
}

type infoJSON struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Uploader    string `json:"uploader"`
	Channel     string `json:"channel"`
	UploadDate  string `json:"upload_date"`
}

// ReadInfoJSON extracts metadata from a yt-dlp info.json file.
func ReadInfoJSON(path string) (metadata.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return metadata.Metadata{}, err
	}
	return ParseInfoJSON(data)
}

// ParseInfoJSON extracts metadata from yt-dlp info.json content.
func ParseInfoJSON(data []byte) (metadata.Metadata, error) {
	var info infoJSON
	if err := json.Unmarshal(data, &info); err != nil {
		return metadata.Metadata{}, fmt.Errorf("decode info json: %w", err)
	}
	channel := strings.TrimSpace(info.Channel)
	if channel == "" {
		channel = strings.TrimSpace(info.Uploader)
	}
	return metadata.Metadata{
		Title:       strings.TrimSpace(info.Title),
		Description: info.Description,
		Channel:     channel,
		PublishedAt: uploadDate(info.UploadDate),
	}, nil
}

// uploadDate converts yt-dlp's YYYYMMDD into YYYY-MM-DD.
func uploadDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) != 8 {
		return raw
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return raw
		}
	}
	return raw[:4] + "-" + raw[4:6] + "-" + raw[6:]
}
