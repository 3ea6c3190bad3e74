package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ayusman/fingerspell/internal/classifier"
	"github.com/ayusman/fingerspell/internal/samples"
	"github.com/ayusman/fingerspell/internal/server"
	"github.com/ayusman/fingerspell/internal/store"
)

func main() {
	addr := flag.String("addr", ":8080", "address to listen on")
	dataDir := flag.String("data", "", "directory for samples, models, and the database (default ~/.fingerspell)")
	flag.Parse()

	fmt.Println("Fingerspell - Sign Language Letter Classification")

	root := *dataDir
	if root == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}
		root = filepath.Join(homeDir, ".fingerspell")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(root, "fingerspell.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	sampleStore := samples.NewStore(filepath.Join(root, "samples"))

	// Pick up a previously trained model bundle if one exists
	artifactPath := filepath.Join(root, "landmark_model")
	model := classifier.New()
	if model.Load(artifactPath) {
		if meta, ok := model.Metadata(); ok {
			fmt.Printf("Loaded model: %d classes, accuracy %.4f\n", len(meta.Classes), meta.Accuracy)
		}
	} else {
		fmt.Println("No trained model found, collect samples and train via POST /api/train")
	}

	// Find web directory
	webDir := findWebDir(root)
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	// Configure and start server
	cfg := server.Config{
		Model:        model,
		Samples:      sampleStore,
		Store:        st,
		ArtifactPath: artifactPath,
		StaticDir:    webDir,
	}

	srv := server.New(cfg)

	fmt.Printf("Starting server on %s\n", *addr)
	if err := srv.ListenAndServe(*addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks "web", "../web", "../../web", and <root>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(root string) string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	rootWebDir := filepath.Join(root, "web")
	if info, err := os.Stat(rootWebDir); err == nil && info.IsDir() {
		return rootWebDir
	}

	return ""
}
