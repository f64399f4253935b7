package server

//go:generate swag init -g internal/server/server.go -o internal/server/docs

// @title Trygglink API
// @version 1.0
// @description Aggregated threat-intelligence verdicts for URLs and files.
// @contact.name Trygglink Maintainers
// @contact.url https://github.com/raysh454/trygglink
// @BasePath /
