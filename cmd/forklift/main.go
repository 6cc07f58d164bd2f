package main

import "forklift/internal/app"

func main() {
	app.Run()
}
