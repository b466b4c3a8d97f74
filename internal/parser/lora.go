package parser

import (
	"errors"
	"fmt"

	"github.com/brocaar/lorawan"
)

// LoRaCodec wraps application payloads into LoRaWAN 1.0 unconfirmed data
// uplink frames (ABP session keys) and unwraps them on the receiving side.
type LoRaCodec struct {
	DevAddr lorawan.DevAddr
	AppSKey lorawan.AES128Key
	NwkSKey lorawan.AES128Key
	FPort   uint8
	FCnt    uint32
}

// NewLoRaCodec builds a codec from hex encoded session parameters.
func NewLoRaCodec(devAddr, appSKey, nwkSKey string, fPort uint8) (*LoRaCodec, error) {
	c := &LoRaCodec{FPort: fPort}
	if err := c.DevAddr.UnmarshalText([]byte(devAddr)); err != nil {
		return nil, fmt.Errorf("dev addr: %w", err)
	}
	if err := c.AppSKey.UnmarshalText([]byte(appSKey)); err != nil {
		return nil, fmt.Errorf("app s key: %w", err)
	}
	if err := c.NwkSKey.UnmarshalText([]byte(nwkSKey)); err != nil {
		return nil, fmt.Errorf("nwk s key: %w", err)
	}
	if fPort == 0 {
		return nil, errors.New("f_port 0 is reserved for MAC commands")
	}
	return c, nil
}

// Encode wraps payload into an encrypted, MIC-signed PHYPayload and advances
// the frame counter.
func (c *LoRaCodec) Encode(payload []byte) ([]byte, error) {
	c.FCnt++
	fPort := c.FPort
	phy := lorawan.PHYPayload{
		MHDR: lorawan.MHDR{
			MType: lorawan.UnconfirmedDataUp,
			Major: lorawan.LoRaWANR1,
		},
		MACPayload: &lorawan.MACPayload{
			FHDR: lorawan.FHDR{
				DevAddr: c.DevAddr,
				FCnt:    c.FCnt,
			},
			FPort:      &fPort,
			FRMPayload: []lorawan.Payload{&lorawan.DataPayload{Bytes: payload}},
		},
	}
	if err := phy.EncryptFRMPayload(c.AppSKey); err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	if err := phy.SetUplinkDataMIC(lorawan.LoRaWAN1_0, 0, 0, 0, c.NwkSKey, lorawan.AES128Key{}); err != nil {
		return nil, fmt.Errorf("mic: %w", err)
	}
	return phy.MarshalBinary()
}

// Decode validates the MIC of frame, decrypts it and returns the application
// payload with the frame counter.
func (c *LoRaCodec) Decode(frame []byte) ([]byte, uint32, error) {
	var phy lorawan.PHYPayload
	if err := phy.UnmarshalBinary(frame); err != nil {
		return nil, 0, fmt.Errorf("unmarshal: %w", err)
	}
	if phy.MHDR.MType != lorawan.UnconfirmedDataUp {
		return nil, 0, fmt.Errorf("unexpected mtype %v", phy.MHDR.MType)
	}
	ok, err := phy.ValidateUplinkDataMIC(lorawan.LoRaWAN1_0, 0, 0, 0, c.NwkSKey, lorawan.AES128Key{})
	if err != nil {
		return nil, 0, fmt.Errorf("mic: %w", err)
	}
	if !ok {
		return nil, 0, errors.New("invalid mic")
	}
	if err := phy.DecryptFRMPayload(c.AppSKey); err != nil {
		return nil, 0, fmt.Errorf("decrypt: %w", err)
	}

	mac, ok := phy.MACPayload.(*lorawan.MACPayload)
	if !ok {
		return nil, 0, errors.New("missing mac payload")
	}
	if mac.FHDR.DevAddr != c.DevAddr {
		return nil, 0, fmt.Errorf("frame for %s, expected %s", mac.FHDR.DevAddr, c.DevAddr)
	}
	if len(mac.FRMPayload) != 1 {
		return nil, mac.FHDR.FCnt, nil
	}
	data, ok := mac.FRMPayload[0].(*lorawan.DataPayload)
	if !ok {
		return nil, 0, errors.New("unexpected frm payload type")
	}
	return data.Bytes, mac.FHDR.FCnt, nil
}
