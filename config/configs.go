package config

import (
	"encoding/xml"
	"fmt"
	"os"
)

var Listen string
var DBPath string
var RemoteBase string
var MaxAreaHa float64
var PollSeconds int
var FarmID uint
var MainConfig Config

type Config struct {
	XMLName     xml.Name `xml:"config"`
	Listen      string   `xml:"listen"`
	DBPath      string   `xml:"dbpath"`
	RemoteBase  string   `xml:"remote"`
	MaxAreaHa   float64  `xml:"maxareaha"`
	PollSeconds int      `xml:"pollseconds"`
	FarmID      uint     `xml:"farmid"`
}

func init() {
	// Sensible defaults so a missing config.xml still boots a local server.
	MainConfig = Config{
		Listen:      ":8426",
		DBPath:      "./Data/fieldmap.db",
		MaxAreaHa:   1000,
		PollSeconds: 10,
		FarmID:      1,
	}

	xmlFile, err := os.Open("config.xml")
	if err == nil {
		defer xmlFile.Close()
		if err := xml.NewDecoder(xmlFile).Decode(&MainConfig); err != nil {
			fmt.Println("Error decoding config.xml:", err)
		}
	}

	if MainConfig.Listen == "" {
		MainConfig.Listen = ":8426"
	}
	if MainConfig.PollSeconds <= 0 {
		MainConfig.PollSeconds = 10
	}

	Listen = MainConfig.Listen
	DBPath = MainConfig.DBPath
	RemoteBase = MainConfig.RemoteBase
	MaxAreaHa = MainConfig.MaxAreaHa
	PollSeconds = MainConfig.PollSeconds
	FarmID = MainConfig.FarmID
}
