package models

// Observation is one decoded weather report for a station at one collection
// time. Measurement fields are strings with "" meaning the report did not
// carry that field; partial reports are common and must stay distinguishable
// from parse failures. The (ICAO, Date) pair is the dedup key.
type Observation struct {
	ICAO          string `json:"icao" dynamodbav:"icao"`
	Date          int64  `json:"date" dynamodbav:"date"`
	Temperature   string `json:"temperature" dynamodbav:"temperature"`
	Pressure      string `json:"pressure" dynamodbav:"pressure"`
	WindDirection string `json:"wind_direction" dynamodbav:"wind_direction"`
	WindSpeed     string `json:"wind_speed" dynamodbav:"wind_speed"`
}
