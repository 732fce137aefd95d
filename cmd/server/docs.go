package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Updown Rooms API
// @version         0.1.0
// @description     Prediction rooms, settlement reconciliation, and payout claims.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
