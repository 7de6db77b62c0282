package config

import (
	"time"

	"github.com/spf13/viper"
)

// Load installs the defaults and turns on environment overrides. Every
// service calls it once at startup.
func Load() error {
	// MQTT broker
	viper.SetDefault("MQTT_HOST", "localhost")
	viper.SetDefault("MQTT_PORT", 1883)
	viper.SetDefault("MQTT_USER", "guest")
	viper.SetDefault("MQTT_PASSWORD", "guest")

	// Device agent
	viper.SetDefault("DEVICE_ID_PATH", "/var/lib/device-agent/device-id")
	viper.SetDefault("SENSOR_BACKEND", "sim") // sim | gpio
	viper.SetDefault("RELAY_PIN", "7")
	viper.SetDefault("ADC_MOISTURE_CHANNEL", 0)
	viper.SetDefault("ADC_RAIN_CHANNEL", 1)
	viper.SetDefault("SIM_RAIN_LEVEL", 0.0)
	viper.SetDefault("LATITUDE", 41.9028)
	viper.SetDefault("LONGITUDE", 12.4964)
	viper.SetDefault("WEATHER_API_KEY", "")

	// Recorder
	viper.SetDefault("INFLUX_URL", "http://localhost:8086")
	viper.SetDefault("INFLUX_TOKEN", "")
	viper.SetDefault("INFLUX_ORG", "smartirrigation")
	viper.SetDefault("INFLUX_BUCKET", "records")
	viper.SetDefault("WRITE_BATCH_SIZE", 10)
	viper.SetDefault("WRITE_FLUSH_INTERVAL_MS", 200)
	viper.SetDefault("HTTP_PORT", 8080)
	viper.SetDefault("RECORD_SUB_TOPICS", "+/record/sensor_data,+/record/water_used,register")

	viper.AutomaticEnv()
	return nil
}

func MQTTHost() string     { return viper.GetString("MQTT_HOST") }
func MQTTPort() int        { return viper.GetInt("MQTT_PORT") }
func MQTTUser() string     { return viper.GetString("MQTT_USER") }
func MQTTPassword() string { return viper.GetString("MQTT_PASSWORD") }

func DeviceIDPath() string     { return viper.GetString("DEVICE_ID_PATH") }
func SensorBackend() string    { return viper.GetString("SENSOR_BACKEND") }
func RelayPin() string         { return viper.GetString("RELAY_PIN") }
func ADCMoistureChannel() int  { return viper.GetInt("ADC_MOISTURE_CHANNEL") }
func ADCRainChannel() int      { return viper.GetInt("ADC_RAIN_CHANNEL") }
func SimRainLevel() float64    { return viper.GetFloat64("SIM_RAIN_LEVEL") }
func Latitude() float64        { return viper.GetFloat64("LATITUDE") }
func Longitude() float64       { return viper.GetFloat64("LONGITUDE") }
func WeatherAPIKey() string    { return viper.GetString("WEATHER_API_KEY") }

func InfluxURL() string    { return viper.GetString("INFLUX_URL") }
func InfluxToken() string  { return viper.GetString("INFLUX_TOKEN") }
func InfluxOrg() string    { return viper.GetString("INFLUX_ORG") }
func InfluxBucket() string { return viper.GetString("INFLUX_BUCKET") }

func WriteBatchSize() int { return viper.GetInt("WRITE_BATCH_SIZE") }
func WriteFlushInterval() time.Duration {
	return time.Duration(viper.GetInt("WRITE_FLUSH_INTERVAL_MS")) * time.Millisecond
}
func HTTPPort() int            { return viper.GetInt("HTTP_PORT") }
func RecordSubTopics() string  { return viper.GetString("RECORD_SUB_TOPICS") }
