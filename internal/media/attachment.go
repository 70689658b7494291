package media

import (
	"net/url"
	"path"
	"strings"
)

type Kind int

const (
	KindNone Kind = iota
	KindImage
	KindVideo
	KindOther
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".ogg":  true,
	".mov":  true,
}

// Classify decides what an uploaded attachment is. The declared content type wins,
// otherwise the extension of the filename or the URL path is used.
func Classify(link, filename, contentType string) Kind {
	if strings.TrimSpace(link) == "" {
		return KindNone
	}

	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case strings.HasPrefix(ct, "video/"):
		return KindVideo
	case ct != "" && ct != "application/octet-stream":
		return KindOther
	}

	if kind := kindFromExt(filename); kind != KindOther {
		return kind
	}

	// Chat CDNs tend to append signing parameters, only the path matters
	if u, err := url.Parse(link); err == nil {
		return kindFromExt(u.Path)
	}
	return kindFromExt(link)
}

func IsImage(link, filename, contentType string) bool {
	return Classify(link, filename, contentType) == KindImage
}

func kindFromExt(name string) Kind {
	ext := strings.ToLower(path.Ext(name))
	switch {
	case imageExtensions[ext]:
		return KindImage
	case videoExtensions[ext]:
		return KindVideo
	}
	return KindOther
}
