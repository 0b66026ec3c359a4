// Command bakeoff generates several candidate modifications for one file,
// validates each in its own isolated workspace, and applies the winner only
// after confirmation.
package main

func main() {
	Execute()
}
