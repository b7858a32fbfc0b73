package redisx

const ns = "cinego:v1"

func ChannelCheckoutEvents() string {
	return ns + ":checkout:events"
}
