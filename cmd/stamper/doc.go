// Command stamper crawls a shared Drive folder tree, burns the folder name
// and prompt text onto each submitted video, and publishes the result back to
// the folder it came from.
package main
