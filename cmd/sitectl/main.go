// Command sitectl performs maintenance on the site database: index setup,
// listing and toggling content, purging spent verification tokens and
// presigning upload URLs.
package main

import "github.com/threespace/site-backend/cmd/sitectl/commands"

func main() {
	commands.Execute()
}
