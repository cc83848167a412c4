package client

import (
	"github.com/aubus-project/aubus/pkg/protocol"
)

// Typed wrappers over Call, one per server operation. Each returns the raw
// response message; callers branch on its Type.

func (c *Client) Register(payload map[string]any) (*protocol.Message, error) {
	return c.Call(protocol.TypeRegister, payload, protocol.TypeRegisterOK, protocol.TypeRegisterFail)
}

func (c *Client) Login(username, password string) (*protocol.Message, error) {
	return c.Call(protocol.TypeLogin, map[string]any{
		"username": username,
		"password": password,
	}, protocol.TypeLoginOK, protocol.TypeLoginFail)
}

func (c *Client) TokenLogin(token string) (*protocol.Message, error) {
	return c.Call(protocol.TypeTokenLogin, map[string]any{
		"token": token,
	}, protocol.TypeLoginOK, protocol.TypeLoginFail)
}

func (c *Client) AnnouncePeer(port int) (*protocol.Message, error) {
	return c.Call(protocol.TypeAnnouncePeer, map[string]any{
		"port": port,
	}, protocol.TypeAnnounceOK, protocol.TypeAnnounceFail)
}

func (c *Client) SetRole(userID uint, role, area string, minRating *int) (*protocol.Message, error) {
	payload := map[string]any{
		"user_id": userID,
		"role":    role,
		"area":    area,
	}
	if minRating != nil {
		payload["min_rating"] = *minRating
	}
	return c.Call(protocol.TypeSetRole, payload, protocol.TypeSetRoleOK, protocol.TypeSetRoleFail)
}

func (c *Client) AddSchedule(userID uint, day, at, direction, area string) (*protocol.Message, error) {
	return c.Call(protocol.TypeAddSchedule, map[string]any{
		"user_id":   userID,
		"day":       day,
		"time":      at,
		"direction": direction,
		"area":      area,
	}, protocol.TypeAddScheduleOK)
}

func (c *Client) ListSchedule(userID uint) (*protocol.Message, error) {
	return c.Call(protocol.TypeListSchedule, map[string]any{
		"user_id": userID,
	}, protocol.TypeScheduleList)
}

func (c *Client) DeleteSchedule(userID, scheduleID uint) (*protocol.Message, error) {
	return c.Call(protocol.TypeDeleteSchedule, map[string]any{
		"user_id":     userID,
		"schedule_id": scheduleID,
	}, protocol.TypeDeleteScheduleOK)
}

func (c *Client) BroadcastRideRequest(passengerID uint, direction, day, at, area string) (*protocol.Message, error) {
	return c.Call(protocol.TypeBroadcastRideRequest, map[string]any{
		"passenger_id": passengerID,
		"direction":    direction,
		"day":          day,
		"time":         at,
		"area":         area,
	}, protocol.TypeBroadcastOK, protocol.TypeNoDriversFound)
}

func (c *Client) FetchRideRequests(driverID uint) (*protocol.Message, error) {
	return c.Call(protocol.TypeFetchRideRequests, map[string]any{
		"driver_id": driverID,
	}, protocol.TypeRideRequestList)
}

func (c *Client) DriverResponse(rideID, driverID uint, status string) (*protocol.Message, error) {
	return c.Call(protocol.TypeDriverResponse, map[string]any{
		"ride_id":   rideID,
		"driver_id": driverID,
		"status":    status,
	}, protocol.TypeDriverResponseOK, protocol.TypeDriverResponseFail)
}

func (c *Client) FetchRides(userID uint) (*protocol.Message, error) {
	return c.Call(protocol.TypeFetchRides, map[string]any{
		"user_id": userID,
	}, protocol.TypeRidesList)
}

func (c *Client) StartRide(rideID uint) (*protocol.Message, error) {
	return c.Call(protocol.TypeStartRide, map[string]any{
		"ride_id": rideID,
	}, protocol.TypeStartRideOK, protocol.TypeStartRideFail)
}

func (c *Client) CompleteRide(rideID uint) (*protocol.Message, error) {
	return c.Call(protocol.TypeCompleteRide, map[string]any{
		"ride_id": rideID,
	}, protocol.TypeCompleteRideOK, protocol.TypeCompleteRideFail)
}

func (c *Client) CancelRide(rideID uint) (*protocol.Message, error) {
	return c.Call(protocol.TypeCancelRide, map[string]any{
		"ride_id": rideID,
	}, protocol.TypeCancelRideOK, protocol.TypeCancelRideFail)
}

func (c *Client) UpdateRating(rideID, raterUserID uint, rating int) (*protocol.Message, error) {
	return c.Call(protocol.TypeUpdateRating, map[string]any{
		"ride_id":       rideID,
		"rater_user_id": raterUserID,
		"rating":        rating,
	}, protocol.TypeUpdateRatingOK, protocol.TypeUpdateRatingFail)
}

func (c *Client) ListContacts(userID uint) (*protocol.Message, error) {
	return c.Call(protocol.TypeListContacts, map[string]any{
		"user_id": userID,
	}, protocol.TypeContacts)
}

func (c *Client) FetchMessages(userID, partnerID uint) (*protocol.Message, error) {
	return c.Call(protocol.TypeFetchMessages, map[string]any{
		"user_id":    userID,
		"partner_id": partnerID,
	}, protocol.TypeMessages)
}

func (c *Client) SendMessage(to, body string, attachment map[string]any) (*protocol.Message, error) {
	payload := map[string]any{
		"to":      to,
		"message": body,
	}
	for k, v := range attachment {
		payload[k] = v
	}
	return c.Call(protocol.TypeSendMessage, payload, protocol.TypeSendMessageOK, protocol.TypeSendMessageFail)
}
