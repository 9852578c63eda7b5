// Command itemsvc serves the item CRUD API on AWS Lambda or over HTTP.
package main

func main() {
	Execute()
}
