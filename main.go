package main

import "github.com/KaramelBytes/citycluster-cli/cmd"

func main() {
	cmd.Execute()
}
