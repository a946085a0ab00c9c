package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	DCP - Discovery & Configuration Protocol.
 *
 * Description:	Identify/Get/Set/Hello over L2 multicast. Identify
 *		responses are delayed by a random fraction of a 1s window
 *		derived deterministically from the device MAC so that many
 *		devices on the same segment do not collide.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
	"net"
	"regexp"
	"strings"
)

// DCP option/suboption codes, a reduced set covering the blocks
// this core reads or writes.
const (
	dcpOptionIP                 = 0x01
	dcpSuboptionIPMAC           = 0x01
	dcpSuboptionIPAddress       = 0x02

	dcpOptionDevice             = 0x02
	dcpSuboptionDeviceNameOfStation = 0x02
	dcpSuboptionDeviceID        = 0x03
	dcpSuboptionDeviceRole      = 0x04
	dcpSuboptionDeviceInstance  = 0x05

	dcpOptionControl           = 0x05
	dcpSuboptionControlResponse = 0x05
	dcpSuboptionControlFactory = 0x06

	dcpOptionAllSelector = 0xff
)

// DCPServiceID is the DCP service field.
type DCPServiceID uint8

const (
	DCPServiceGet      DCPServiceID = 3
	DCPServiceSet      DCPServiceID = 4
	DCPServiceIdentify DCPServiceID = 5
	DCPServiceHello    DCPServiceID = 6
)

// DCPBlockError is the error code returned in a Set response block.
type DCPBlockError uint8

const (
	DCPErrNone               DCPBlockError = 0
	DCPErrNotSupportedOption DCPBlockError = 1
	DCPErrNotSupportedSuboption DCPBlockError = 2
	DCPErrSetNotPossible     DCPBlockError = 3
	DCPErrResourceError      DCPBlockError = 4
)

// stationNameLabel matches one dot-separated label of a station name:
// lowercase letters, digits and hyphens only.
var stationNameLabel = regexp.MustCompile(`^[a-z0-9-]+$`)

var portLikeLabel = regexp.MustCompile(`^port-[0-9]{3}(-[0-9]{5})?$`)

var allDigitIPLikeName = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+\.[0-9]+$`)

// ValidStationName implements  property 4. The empty string means
// "unset" and is accepted.
func ValidStationName(name string) bool {
	if name == "" {
		return true
	}

	if len(name) < 1 || len(name) > 240 {
		return false
	}

	if allDigitIPLikeName.MatchString(name) {
		return false
	}

	var labels = strings.Split(name, ".")
	for i, label := range labels {
		if !stationNameLabel.MatchString(label) {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		if i == 0 && portLikeLabel.MatchString(label) {
			return false
		}
	}

	return true
}

// ValidIPNetmask implements  property 5.
func ValidIPNetmask(ip, mask net.IP) bool {
	var ip4 = ip.To4()
	var mask4 = mask.To4()
	if ip4 == nil || mask4 == nil {
		return false
	}

	var ipv = be32(ip4)
	var maskv = be32(mask4)

	if !isContiguousMask(maskv) {
		return false
	}

	var host = ipv &^ maskv
	if host == 0 || host == ^maskv {
		return false
	}

	if ip4[0] == 0 || ip4[0] == 127 {
		return false
	}
	if ip4[0] >= 224 && ip4[0] <= 239 {
		return false
	}
	if ip4[0] >= 240 {
		return false
	}

	return true
}

func be32(b net.IP) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// isContiguousMask reports whether m, read as a sequence of bits, is a
// run of ones followed by a run of zeros.
func isContiguousMask(m uint32) bool {
	var seenZero = false
	for i := 31; i >= 0; i-- {
		var bit = (m >> uint(i)) & 1
		if bit == 0 {
			seenZero = true
		} else if seenZero {
			return false
		}
	}
	return true
}

// responseDelayFraction derives a deterministic pseudo-random delay
// fraction in [0,1) from the device MAC and the DCP response-delay-factor
// field, so multiple devices answering the same Identify
// multicast spread their responses across the 1s window.
func responseDelayFraction(mac [6]byte, responseDelayFactor uint16) float64 {
	var h uint32 = 2166136261 // FNV-1a seed
	for _, b := range mac {
		h ^= uint32(b)
		h *= 16777619
	}
	h ^= uint32(responseDelayFactor)
	h *= 16777619

	return float64(h%10000) / 10000.0
}

// DCPSetRequest is one decoded Set block; this core only
// implements the station-name, IP-suite and reset-to-factory blocks.
type DCPSetRequest struct {
	StationName *string
	IPAddress   net.IP
	NetMask     net.IP
	Gateway     net.IP
	ResetToFactory *ResetMode
}

// ResetMode is the scope of a DCP reset-to-factory request.
type ResetMode uint8

const (
	ResetModeCommunication ResetMode = iota
	ResetModeApplication
	ResetModeAll
)

// DCP is the discovery protocol endpoint, one per device.
type DCP struct {
	device *Device
}

// NewDCP constructs the discovery protocol endpoint.
func NewDCP(d *Device) *DCP {
	return &DCP{device: d}
}

// HandleIdentify computes the delay, in microseconds, before an Identify
// response; scheduling, framing and sending the response are the caller's
// responsibility (transport is an external collaborator). mac is the local
// interface's hardware address.
func (p *DCP) HandleIdentify(mac [6]byte, responseDelayFactor uint16) (delayMicros uint64) {
	var fraction = responseDelayFraction(mac, responseDelayFactor)
	return uint64(fraction * 1e6)
}

// HandleSet validates and applies a DCP Set request. A Set that changes IP
// while any AR exists aborts those ARs; a reset-to-factory Set tears down
// all ARs via resetToFactory.
func (p *DCP) HandleSet(req DCPSetRequest) DCPBlockError {
	if req.StationName != nil {
		if !ValidStationName(*req.StationName) {
			return DCPErrSetNotPossible
		}
	}

	if req.IPAddress != nil && req.NetMask != nil {
		if !ValidIPNetmask(req.IPAddress, req.NetMask) {
			return DCPErrSetNotPossible
		}
	}

	if req.ResetToFactory != nil {
		p.device.resetToFactory(*req.ResetToFactory)
		return DCPErrNone
	}

	var ipChanged = req.IPAddress != nil && !req.IPAddress.Equal(p.device.Config.IPAddress)

	if req.StationName != nil {
		p.device.Config.StationName = *req.StationName
		p.device.cmina.OnNameSet(*req.StationName)
	}

	if req.IPAddress != nil {
		p.device.Config.IPAddress = req.IPAddress
		if req.NetMask != nil {
			p.device.Config.NetMask = req.NetMask
		}
		if req.Gateway != nil {
			p.device.Config.Gateway = req.Gateway
		}

		if ipChanged {
			p.device.abortAllARs(newARError(ErrClassCTLDINA, ErrCodeMultipleIPUsers, "IP address changed by DCP Set"))
		}

		p.device.cmina.OnIPSet(req.IPAddress)
	}

	return DCPErrNone
}

// dcpBlock is one decoded option/suboption/data TLV, using the same
// TLV framing CMRPC's cursor uses to read Connect's blocks.
type dcpBlock struct {
	Option    uint8
	Suboption uint8
	Data      []byte
}

// decodeDCPBlocks splits a Get/Set payload into its TLV blocks. Each block
// is option(1) + suboption(1) + length(2) + data(length), padded to an
// even boundary per DCP's block alignment rule.
func decodeDCPBlocks(payload []byte) ([]dcpBlock, error) {
	var blocks []dcpBlock
	var pos = 0

	for pos < len(payload) {
		if pos+4 > len(payload) {
			return nil, fmt.Errorf("pnet: dcp block header truncated")
		}

		var option = payload[pos]
		var suboption = payload[pos+1]
		var length = int(binary.BigEndian.Uint16(payload[pos+2 : pos+4]))
		pos += 4

		if pos+length > len(payload) {
			return nil, fmt.Errorf("pnet: dcp block data truncated")
		}

		blocks = append(blocks, dcpBlock{Option: option, Suboption: suboption, Data: payload[pos : pos+length]})
		pos += length
		if length%2 != 0 {
			pos++ // skip pad byte
		}
	}

	return blocks, nil
}

// encodeDCPBlock serializes one TLV block, padding to an even length.
func encodeDCPBlock(option, suboption uint8, data []byte) []byte {
	var out = make([]byte, 4, 4+len(data)+1)
	out[0] = option
	out[1] = suboption
	binary.BigEndian.PutUint16(out[2:4], uint16(len(data)))
	out = append(out, data...)
	if len(data)%2 != 0 {
		out = append(out, 0)
	}
	return out
}

// DecodeSetRequest parses a Set PDU's blocks into a DCPSetRequest.
// Unrecognized options are ignored rather than rejected, so a newer
// controller's optional blocks never fail an older device's Set.
func DecodeSetRequest(payload []byte) (DCPSetRequest, error) {
	var blocks, err = decodeDCPBlocks(payload)
	if err != nil {
		return DCPSetRequest{}, newARError(ErrClassCMRPC, ErrCodeDecodeError, err.Error())
	}

	var req DCPSetRequest
	for _, b := range blocks {
		switch {
		case b.Option == dcpOptionDevice && b.Suboption == dcpSuboptionDeviceNameOfStation:
			var name = string(b.Data)
			req.StationName = &name

		case b.Option == dcpOptionIP && b.Suboption == dcpSuboptionIPAddress:
			if len(b.Data) < 12 {
				return DCPSetRequest{}, newARError(ErrClassCMRPC, ErrCodeDecodeError, "dcp: ip block too short")
			}
			req.IPAddress = net.IPv4(b.Data[0], b.Data[1], b.Data[2], b.Data[3])
			req.NetMask = net.IPv4(b.Data[4], b.Data[5], b.Data[6], b.Data[7])
			req.Gateway = net.IPv4(b.Data[8], b.Data[9], b.Data[10], b.Data[11])

		case b.Option == dcpOptionControl && b.Suboption == dcpSuboptionControlFactory:
			if len(b.Data) < 1 {
				return DCPSetRequest{}, newARError(ErrClassCMRPC, ErrCodeDecodeError, "dcp: factory block too short")
			}
			var mode = ResetMode(b.Data[0])
			req.ResetToFactory = &mode
		}
	}

	return req, nil
}

// EncodeSetResponse builds the block-error response block for a Set
// request.
func EncodeSetResponse(status DCPBlockError) []byte {
	return encodeDCPBlock(dcpOptionControl, dcpSuboptionControlResponse, []byte{byte(status)})
}

// EncodeIdentifyResponse builds the station-name and IP-suite blocks a
// device reports in answer to Identify or Hello.
func EncodeIdentifyResponse(cfg *DeviceConfig) []byte {
	var out []byte

	out = append(out, encodeDCPBlock(dcpOptionDevice, dcpSuboptionDeviceNameOfStation, []byte(cfg.StationName))...)

	var ipData = make([]byte, 12)
	if ip4 := cfg.IPAddress.To4(); ip4 != nil {
		copy(ipData[0:4], ip4)
	}
	if mask4 := cfg.NetMask.To4(); mask4 != nil {
		copy(ipData[4:8], mask4)
	}
	if gw4 := cfg.Gateway.To4(); gw4 != nil {
		copy(ipData[8:12], gw4)
	}
	out = append(out, encodeDCPBlock(dcpOptionIP, dcpSuboptionIPAddress, ipData)...)

	return out
}
