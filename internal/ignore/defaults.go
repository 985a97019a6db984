package ignore

// DefaultPatterns are excluded from packed output unless disabled.
var DefaultPatterns = []string{
	// Version control
	".git/",
	".hg/",
	".svn/",

	// Dependencies and build output
	"node_modules/",
	"bower_components/",
	"vendor/",
	"dist/",
	"build/",
	"target/",
	"out/",
	"coverage/",
	"__pycache__/",
	".venv/",
	".next/",
	".nuxt/",
	".cache/",

	// Lock files
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"Cargo.lock",
	"composer.lock",
	"Gemfile.lock",
	"poetry.lock",
	"go.sum",

	// Editor and OS clutter
	".idea/",
	".vscode/",
	".DS_Store",
	"Thumbs.db",
	"*.swp",

	// Logs and temporary files
	"*.log",
	"*.tmp",

	// Binary and media files
	"*.exe",
	"*.dll",
	"*.so",
	"*.dylib",
	"*.class",
	"*.jar",
	"*.pyc",
	"*.o",
	"*.a",
	"*.zip",
	"*.tar",
	"*.gz",
	"*.tgz",
	"*.7z",
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.ico",
	"*.webp",
	"*.pdf",
	"*.mp3",
	"*.mp4",
	"*.woff",
	"*.woff2",
	"*.ttf",
	"*.eot",

	// Packed output of previous runs
	"repopack-output.*",
}
