// Command embedform drives embedded-form pages from the terminal and serves
// the sample fragment application.
package main

func main() {
	Execute()
}
