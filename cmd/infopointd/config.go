package main

import (
	infopointsvc "infopoint-backend/services/infopoint"
)

type DatabaseConfig struct {
	Accounts   string `json:"accounts"`
	Gradestore string `json:"gradestore"`
}

type RefreshConfig struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

type Config struct {
	Port      int                     `json:"port"`
	Databases DatabaseConfig          `json:"databases"`
	Refresh   RefreshConfig           `json:"refresh"`
	Smtp      infopointsvc.SmtpConfig `json:"smtp"`
}
