package dispatch

import (
	"path/filepath"
	"strings"
)

// FileType is the editor-facing language of a file.
type FileType string

const (
	FileTypeJavaScript FileType = "javascript"
	FileTypeTypeScript FileType = "typescript"
	FileTypeHTML       FileType = "html"
	FileTypeCSS        FileType = "css"
	FileTypeSCSS       FileType = "scss"
	FileTypeSass       FileType = "sass"
	FileTypeJSON       FileType = "json"
	FileTypeMarkdown   FileType = "markdown"
	FileTypePython     FileType = "python"
	FileTypeJava       FileType = "java"
	FileTypeCPP        FileType = "cpp"
	FileTypeC          FileType = "c"
	FileTypeText       FileType = "text"
)

// Kind is the preview route for a file. Only three kinds can be previewed.
type Kind string

const (
	KindJavaScript Kind = "javascript"
	KindHTML       Kind = "html"
	KindCSS        Kind = "css"
	KindUnknown    Kind = "unknown"
)

var extensions = map[string]FileType{
	"js":       FileTypeJavaScript,
	"jsx":      FileTypeJavaScript,
	"mjs":      FileTypeJavaScript,
	"cjs":      FileTypeJavaScript,
	"ts":       FileTypeTypeScript,
	"tsx":      FileTypeTypeScript,
	"html":     FileTypeHTML,
	"htm":      FileTypeHTML,
	"css":      FileTypeCSS,
	"scss":     FileTypeSCSS,
	"sass":     FileTypeSass,
	"json":     FileTypeJSON,
	"md":       FileTypeMarkdown,
	"markdown": FileTypeMarkdown,
	"py":       FileTypePython,
	"java":     FileTypeJava,
	"cpp":      FileTypeCPP,
	"cc":       FileTypeCPP,
	"cxx":      FileTypeCPP,
	"hpp":      FileTypeCPP,
	"c":        FileTypeC,
	"h":        FileTypeC,
}

var previewKinds = map[FileType]Kind{
	FileTypeJavaScript: KindJavaScript,
	FileTypeHTML:       KindHTML,
	FileTypeCSS:        KindCSS,
}

// GetFileType maps a file name to its type by extension, case-insensitively.
// Unknown or missing extensions are FileTypeText.
func GetFileType(fileName string) FileType {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if ft, ok := extensions[ext]; ok {
		return ft
	}
	return FileTypeText
}

// Classify returns the preview route for fileName.
func Classify(fileName string) Kind {
	if kind, ok := previewKinds[GetFileType(fileName)]; ok {
		return kind
	}
	return KindUnknown
}

// SupportsLivePreview reports whether fileName can be previewed.
func SupportsLivePreview(fileName string) bool {
	return Classify(fileName) != KindUnknown
}
