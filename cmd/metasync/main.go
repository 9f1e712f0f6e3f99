package main

import "github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/cmd/metasync/cmd"

func main() {
	cmd.Execute()
}
