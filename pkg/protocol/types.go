package protocol

// Request message types.
const (
	TypeRegister             = "REGISTER"
	TypeLogin                = "LOGIN"
	TypeTokenLogin           = "TOKEN_LOGIN"
	TypeAnnouncePeer         = "ANNOUNCE_PEER"
	TypeSetRole              = "SET_ROLE"
	TypeAddSchedule          = "ADD_SCHEDULE"
	TypeListSchedule         = "LIST_SCHEDULE"
	TypeDeleteSchedule       = "DELETE_SCHEDULE"
	TypeBroadcastRideRequest = "BROADCAST_RIDE_REQUEST"
	TypeFetchRideRequests    = "FETCH_RIDE_REQUESTS"
	TypeDriverResponse       = "DRIVER_RESPONSE"
	TypeFetchRides           = "FETCH_RIDES"
	TypeStartRide            = "START_RIDE"
	TypeCompleteRide         = "COMPLETE_RIDE"
	TypeCancelRide           = "CANCEL_RIDE"
	TypeUpdateRating         = "UPDATE_RATING"
	TypeListContacts         = "LIST_CONTACTS"
	TypeFetchMessages        = "FETCH_MESSAGES"
	TypeSendMessage          = "SEND_MESSAGE"
)

// Response message types.
const (
	TypeRegisterOK         = "REGISTER_OK"
	TypeRegisterFail       = "REGISTER_FAIL"
	TypeLoginOK            = "LOGIN_OK"
	TypeLoginFail          = "LOGIN_FAIL"
	TypeAnnounceOK         = "ANNOUNCE_OK"
	TypeAnnounceFail       = "ANNOUNCE_FAIL"
	TypeSetRoleOK          = "SET_ROLE_OK"
	TypeSetRoleFail        = "SET_ROLE_FAIL"
	TypeAddScheduleOK      = "ADD_SCHEDULE_OK"
	TypeScheduleList       = "SCHEDULE_LIST"
	TypeDeleteScheduleOK   = "DELETE_SCHEDULE_OK"
	TypeBroadcastOK        = "BROADCAST_OK"
	TypeNoDriversFound     = "NO_DRIVERS_FOUND"
	TypeRideRequestList    = "RIDE_REQUEST_LIST"
	TypeDriverResponseOK   = "DRIVER_RESPONSE_OK"
	TypeDriverResponseFail = "DRIVER_RESPONSE_FAIL"
	TypeRidesList          = "RIDES_LIST"
	TypeStartRideOK        = "START_RIDE_OK"
	TypeStartRideFail      = "START_RIDE_FAIL"
	TypeCompleteRideOK     = "COMPLETE_RIDE_OK"
	TypeCompleteRideFail   = "COMPLETE_RIDE_FAIL"
	TypeCancelRideOK       = "CANCEL_RIDE_OK"
	TypeCancelRideFail     = "CANCEL_RIDE_FAIL"
	TypeUpdateRatingOK     = "UPDATE_RATING_OK"
	TypeUpdateRatingFail   = "UPDATE_RATING_FAIL"
	TypeContacts           = "CONTACTS"
	TypeMessages           = "MESSAGES"
	TypeSendMessageOK      = "SEND_MESSAGE_OK"
	TypeSendMessageFail    = "SEND_MESSAGE_FAIL"
	TypeError              = "ERROR"
)

// Async push types. These are never the direct response to a request; the
// client multiplexer queues them for the UI layer.
const (
	TypeRideRequest        = "RIDE_REQUEST"
	TypeRideUnavailable    = "RIDE_UNAVAILABLE"
	TypeDriverResponsePush = "DRIVER_RESPONSE" // same wire name, pushed to passengers
	TypeRideStarted        = "RIDE_STARTED"
	TypeRideCompleted      = "RIDE_COMPLETED"
	TypeRideCancelled      = "RIDE_CANCELLED"
	TypeChatMessage        = "CHAT_MESSAGE"
	TypeConnectionLost     = "CONNECTION_LOST"
)

// TypeChatPeer is the single frame carried by a direct peer connection.
const TypeChatPeer = "CHAT_PEER"

// Driver response statuses.
const (
	ResponseAccepted = "ACCEPTED"
	ResponseDenied   = "DENIED"
)
