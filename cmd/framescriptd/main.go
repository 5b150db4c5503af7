// Command framescriptd hosts the decoder registry and its background
// scheduler/GC goroutines under a real process lifecycle, and provides a
// small operator CLI for manual testing. It does not implement any network
// transport; framing and serving client connections is left to an embedder.
package main

func main() {
	execute()
}
