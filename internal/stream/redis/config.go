package redis

type StreamConfig struct {
	RedisAddr     string
	RedisPassword string
	RequestStream string
	ResultStream  string
	Group         string
	ConsumerName  string
}

func NewStreamConfig(redisAddr, redisPassword, requestStream, resultStream, group, consumerName string) *StreamConfig {
	return &StreamConfig{
		RedisAddr:     redisAddr,
		RedisPassword: redisPassword,
		RequestStream: requestStream,
		ResultStream:  resultStream,
		Group:         group,
		ConsumerName:  consumerName,
	}
}
