package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name        string
		link        string
		filename    string
		contentType string
		expected    Kind
	}{
		{name: "empty link", link: "", expected: KindNone},
		{name: "content type image", link: "https://cdn.example.com/a", contentType: "image/png", expected: KindImage},
		{name: "content type with params", link: "https://cdn.example.com/a", contentType: "image/jpeg; charset=binary", expected: KindImage},
		{name: "content type text", link: "https://cdn.example.com/deck.png", contentType: "text/plain", expected: KindOther},
		{name: "filename extension", link: "https://cdn.example.com/a", filename: "main.JPG", expected: KindImage},
		{name: "url extension with query", link: "https://cdn.example.com/att/main.webp?ex=123&is=456", expected: KindImage},
		{name: "video file", link: "https://cdn.example.com/replay.mp4", expected: KindVideo},
		{name: "deck list text", link: "https://cdn.example.com/deck.ydk", expected: KindOther},
		{name: "octet stream falls back to extension", link: "https://cdn.example.com/side.gif", contentType: "application/octet-stream", expected: KindImage},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.link, tc.filename, tc.contentType))
		})
	}
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("https://cdn.example.com/main.png", "", ""))
	assert.False(t, IsImage("https://cdn.example.com/main.txt", "", ""))
}
