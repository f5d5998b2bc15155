package main

//go:generate swag init -g cmd/walletscope/main.go -o docs

// @title           walletscope API
// @version         0.1.0
// @description     Wallet trade reconstruction, rug detection and copy-trade scoring.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
