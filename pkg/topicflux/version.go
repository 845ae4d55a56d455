package topicflux

// Version is the library version reported in the User-Agent header.
const Version = "1.0.0"
